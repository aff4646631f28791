package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"portal/pkg/interfaces"
	"portal/pkg/logger"
	"portal/pkg/types"
)

// Config tunes the dispatch engine
type Config struct {
	PersistTimeout              time.Duration `mapstructure:"persist_timeout"`
	RatePerMinute               int           `mapstructure:"rate_per_minute"`
	UnrestrictedCourseBroadcast bool          `mapstructure:"unrestricted_course_broadcast"`
}

func DefaultConfig() Config {
	return Config{
		PersistTimeout: 5 * time.Second,
		RatePerMinute:  100,
	}
}

// Dispatcher implements interfaces.MessageDispatcher: persist first, then fan
// out to online recipients
// ARCHITECTURAL DISCOVERY: The registry is only read here; registration is
// owned by the connection handler
type Dispatcher struct {
	gateway  interfaces.PersistenceGateway
	registry interfaces.Registry
	limiter  *RateLimiter
	config   Config
	log      zerolog.Logger
}

func NewDispatcher(gateway interfaces.PersistenceGateway, registry interfaces.Registry, config Config) *Dispatcher {
	if config.PersistTimeout <= 0 {
		config.PersistTimeout = DefaultConfig().PersistTimeout
	}
	return &Dispatcher{
		gateway:  gateway,
		registry: registry,
		limiter:  NewRateLimiter(config.RatePerMinute),
		config:   config,
		log:      logger.Component("dispatch"),
	}
}

// Dispatch handles one message event from sender
func (d *Dispatcher) Dispatch(ctx context.Context, sender interfaces.Connection, event *types.MessageEvent) error {
	senderID := sender.GetUserID()
	if !sender.IsAuthenticated() || senderID == "" {
		d.reject(sender, event, MsgNotAuthenticated, false)
		return ErrNotAuthenticated
	}

	// Identity is the one bound at handshake, never the event's claim
	switch event.SenderID {
	case "":
		event.SenderID = senderID
	case senderID:
	default:
		d.log.Warn().Str("user_id", senderID).Str("claimed_sender", event.SenderID).Msg("sender mismatch")
		d.reject(sender, event, MsgSenderMismatch, false)
		return ErrSenderMismatch
	}

	if !d.limiter.Allow(senderID) {
		d.reject(sender, event, MsgRateLimited, true)
		return ErrRateLimited
	}

	input := event.ToNewMessage()
	if err := input.Validate(); err != nil {
		d.reject(sender, event, describeValidation(err), false)
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}

	persistCtx, cancel := context.WithTimeout(ctx, d.config.PersistTimeout)
	message, created, err := d.gateway.CreateMessage(persistCtx, &input)
	cancel()
	if err != nil {
		d.log.Error().Err(err).Str("user_id", senderID).Str("client_message_id", input.ClientMessageID).Msg("persist failed")
		d.reject(sender, event, MsgPersistFailed, true)
		return errors.Wrap(ErrPersistFailed, err.Error())
	}

	if !created {
		// The same key was already persisted and fanned out by whichever
		// path created it
		d.log.Debug().Str("message_id", message.ID).Str("user_id", senderID).Msg("duplicate send collapsed")
		return nil
	}

	delivered := d.FanOut(ctx, message)
	d.log.Info().
		Str("message_id", message.ID).
		Str("user_id", senderID).
		Str("type", message.Type).
		Int("delivered", delivered).
		Msg("message dispatched")
	return nil
}

// FanOut pushes message to its recipients once, never to the sender, and
// returns the number of connections that accepted it
func (d *Dispatcher) FanOut(ctx context.Context, message *types.Message) int {
	payload := types.NewMessageNotification(message)
	delivered := 0

	if message.ReceiverID != nil && *message.ReceiverID != message.SenderID {
		if d.registry.Send(*message.ReceiverID, payload) {
			delivered++
		}
	}

	if message.CourseID != nil && message.Type == types.MessageTypeCourse {
		for _, userID := range d.courseRecipients(ctx, message) {
			if d.registry.Send(userID, payload) {
				delivered++
			}
		}
	}

	return delivered
}

// courseRecipients resolves who receives a course message. By default only
// course members; with UnrestrictedCourseBroadcast every connected user.
func (d *Dispatcher) courseRecipients(ctx context.Context, message *types.Message) []string {
	if d.config.UnrestrictedCourseBroadcast {
		var everyone []string
		d.registry.ForEach(func(userID string, _ interfaces.Connection) bool {
			everyone = append(everyone, userID)
			return true
		})
		return lo.Without(everyone, message.SenderID)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, d.config.PersistTimeout)
	defer cancel()

	members, err := d.gateway.CourseMemberIDs(lookupCtx, *message.CourseID)
	if err != nil {
		// The row is already durable; members see it on their next fetch
		d.log.Warn().Err(err).Str("course_id", *message.CourseID).Str("message_id", message.ID).Msg("course member lookup failed")
		return nil
	}
	return lo.Without(members, message.SenderID)
}

// RateLimiter exposes the limiter for periodic cleanup
func (d *Dispatcher) RateLimiter() *RateLimiter {
	return d.limiter
}

func (d *Dispatcher) reject(sender interfaces.Connection, event *types.MessageEvent, message string, retryable bool) {
	err := sender.WriteJSON(types.ErrorEvent{
		Type:            types.EventError,
		Message:         message,
		Retryable:       retryable,
		ClientMessageID: event.ClientMessageID,
	})
	if err != nil {
		d.log.Debug().Err(err).Str("user_id", sender.GetUserID()).Msg("error event dropped")
	}
}

// describeValidation renders validator field errors as one readable line
func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string {
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	})
	return "Invalid message: " + strings.Join(parts, "; ")
}
