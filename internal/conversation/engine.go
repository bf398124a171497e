// Package conversation implements the data bundle purchase flow.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bingwamta/databot/core/logger"
	"github.com/bingwamta/databot/core/telegram/state"
	"github.com/bingwamta/databot/internal/catalog"
	"github.com/bingwamta/databot/internal/chat"
	"github.com/bingwamta/databot/internal/directory"
	"github.com/bingwamta/databot/internal/payment"
	"github.com/bingwamta/databot/internal/phone"
)

const component = "conversation"

const (
	// DefaultSessionTimeout resets conversations idle for longer.
	DefaultSessionTimeout = 180 * time.Second
	// DefaultChargeTimeout bounds the payment call of one confirmation.
	DefaultChargeTimeout = 30 * time.Second
)

// Config holds presentation and timing settings.
type Config struct {
	BotName        string
	Version        string
	SupportContact string
	SupportPhone   string
	SessionTimeout time.Duration
	ChargeTimeout  time.Duration
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Catalog   *catalog.Catalog
	Directory directory.Directory
	Payments  payment.Charger
	Messenger chat.Messenger

	// Now and NewReference default to time.Now and payment.NewReference.
	Now          func() time.Time
	NewReference func(time.Time) string
}

// Engine drives one purchase session per (user, chat).
type Engine struct {
	cfg      Config
	catalog  *catalog.Catalog
	dir      directory.Directory
	payments payment.Charger
	msg      chat.Messenger
	sessions *state.Store[Session]
	now      func() time.Time
	newRef   func(time.Time) string
}

// New validates deps and builds an Engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	switch {
	case deps.Catalog == nil:
		return nil, errors.New("conversation: catalog is required")
	case deps.Directory == nil:
		return nil, errors.New("conversation: directory is required")
	case deps.Payments == nil:
		return nil, errors.New("conversation: payments are required")
	case deps.Messenger == nil:
		return nil, errors.New("conversation: messenger is required")
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultSessionTimeout
	}
	if cfg.ChargeTimeout <= 0 {
		cfg.ChargeTimeout = DefaultChargeTimeout
	}
	e := &Engine{
		cfg:      cfg,
		catalog:  deps.Catalog,
		dir:      deps.Directory,
		payments: deps.Payments,
		msg:      deps.Messenger,
		now:      deps.Now,
		newRef:   deps.NewReference,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newRef == nil {
		e.newRef = payment.NewReference
	}
	e.sessions = state.NewStore(state.Options[Session]{
		Name: component,
		TTL:  cfg.SessionTimeout,
		Now:  e.now,
	})
	return e, nil
}

// State reports the current step for key; missing or expired sessions are Idle.
func (e *Engine) State(key state.Key) State {
	s, ok := e.sessions.Peek(key)
	if !ok {
		return Idle
	}
	return s.State
}

// Run sweeps idle sessions until ctx ends.
func (e *Engine) Run(ctx context.Context) {
	e.sessions.Run(ctx, e.cfg.SessionTimeout/3)
}

// Handle applies one inbound event. Events for the same user and chat are
// processed one at a time; the payment call runs inside that window.
func (e *Engine) Handle(ctx context.Context, ev chat.Event) error {
	key := state.Key{UserID: ev.User.ID, ChatID: ev.ChatID}
	return e.sessions.With(key, func(s *Session) error {
		from := s.State
		err := e.dispatch(ctx, ev, s)
		if s.State != from {
			logger.Info(ctx, component, "transition",
				slog.String("from_state", from.String()),
				slog.String("to_state", s.State.String()),
				slog.String("kind", ev.Kind.String()),
				slog.String("name", ev.Name),
			)
		}
		return err
	})
}

func (e *Engine) dispatch(ctx context.Context, ev chat.Event, s *Session) error {
	switch ev.Kind {
	case chat.KindCommand:
		return e.onCommand(ctx, ev, s)
	case chat.KindButton:
		return e.onButton(ctx, ev, s)
	case chat.KindText:
		return e.onText(ctx, ev, s)
	}
	return fmt.Errorf("conversation: unsupported event kind %d", ev.Kind)
}

func (e *Engine) onCommand(ctx context.Context, ev chat.Event, s *Session) error {
	switch ev.Name {
	case CmdStart, CmdBundles, CmdRestart:
		return e.begin(ctx, ev, s)
	case CmdCancel:
		return e.cancel(ctx, ev, s)
	case CmdHelp:
		e.register(ctx, ev.User)
		return e.reply(ctx, ev.ChatID, e.helpMessage())
	case CmdAbout:
		e.register(ctx, ev.User)
		return e.reply(ctx, ev.ChatID, e.aboutMessage())
	case CmdSupport:
		e.register(ctx, ev.User)
		return e.reply(ctx, ev.ChatID, e.supportMessage())
	}
	logger.Debug(ctx, component, "command.ignored", slog.String("name", ev.Name))
	return nil
}

func (e *Engine) onButton(ctx context.Context, ev chat.Event, s *Session) error {
	if ev.Name == BtnCancel {
		return e.cancel(ctx, ev, s)
	}
	switch s.State {
	case Idle:
		logger.Info(ctx, component, "button.expired", slog.String("name", ev.Name))
		return e.reply(ctx, ev.ChatID, chat.Text(expiredText))
	case ChoosingPackage:
		return e.choose(ctx, ev, s)
	case ConfirmingPurchase:
		switch ev.Name {
		case BtnConfirm:
			return e.confirm(ctx, ev, s)
		case BtnChangePhone:
			return e.changePhone(ctx, ev, s)
		}
	}
	logger.Info(ctx, component, "button.ignored",
		slog.String("name", ev.Name),
		slog.String("state", s.State.String()),
	)
	return nil
}

func (e *Engine) onText(ctx context.Context, ev chat.Event, s *Session) error {
	if s.State != EnteringPhone {
		logger.Debug(ctx, component, "text.ignored", slog.String("state", s.State.String()))
		return nil
	}
	e.discard(ctx, s.LastMessage)
	s.LastMessage = chat.Handle{}

	number, err := phone.Normalize(ev.Text)
	if err != nil {
		logger.Info(ctx, component, "phone.invalid",
			slog.String("input", logger.SanitizeLimit(logger.Mask(ev.Text, 3), 32)),
		)
		return e.show(ctx, ev.ChatID, s, invalidPhoneMessage())
	}
	if s.Offer == nil {
		logger.Warn(ctx, component, "offer.missing", slog.String("state", s.State.String()))
		*s = Session{}
		return e.reply(ctx, ev.ChatID, chat.Text(noOfferText))
	}
	s.Phone = number
	s.State = ConfirmingPurchase
	return e.show(ctx, ev.ChatID, s, summaryMessage(s.Offer, number))
}

// begin handles /start, /bundles and /restart from any state.
func (e *Engine) begin(ctx context.Context, ev chat.Event, s *Session) error {
	e.register(ctx, ev.User)
	e.discard(ctx, s.LastMessage)
	*s = Session{}

	var errs []error
	switch ev.Name {
	case CmdStart:
		errs = append(errs, e.reply(ctx, ev.ChatID, chat.Text(e.welcomeText(ev.User))))
	case CmdRestart:
		errs = append(errs, e.reply(ctx, ev.ChatID, chat.Text(restartText)))
	}
	s.State = ChoosingPackage
	errs = append(errs, e.show(ctx, ev.ChatID, s, rootMenu(rootMenuWelcome)))
	return errors.Join(errs...)
}

func (e *Engine) choose(ctx context.Context, ev chat.Event, s *Session) error {
	switch ev.Name {
	case BtnSupport:
		return e.reply(ctx, ev.ChatID, e.supportMessage())
	case BtnBackToCategories:
		e.clearScreen(ctx, ev, s)
		s.Menu = 0
		return e.show(ctx, ev.ChatID, s, rootMenu(rootMenuText))
	}
	if cat, ok := catalog.CategoryByKey(ev.Name); ok {
		e.clearScreen(ctx, ev, s)
		s.Menu = cat
		return e.show(ctx, ev.ChatID, s, e.menuMessage(cat))
	}

	offer, err := e.catalog.Lookup(ev.Name)
	if err != nil {
		logger.Warn(ctx, component, "offer.invalid",
			slog.String("offer_id", logger.SanitizeLimit(ev.Name, 64)),
			logger.Err(err),
		)
		e.clearScreen(ctx, ev, s)
		msg := e.menuMessage(s.Menu)
		msg.Text = invalidOffer + "\n\n" + msg.Text
		return e.show(ctx, ev.ChatID, s, msg)
	}

	logger.Info(ctx, component, "offer.selected",
		slog.String("offer_id", offer.ID),
		slog.Int("amount", offer.Price),
	)
	e.clearScreen(ctx, ev, s)
	s.Offer = offer
	s.State = EnteringPhone
	return e.show(ctx, ev.ChatID, s, phonePrompt(offer))
}

func (e *Engine) changePhone(ctx context.Context, ev chat.Event, s *Session) error {
	e.clearScreen(ctx, ev, s)
	s.Phone = ""
	if s.Offer == nil {
		*s = Session{}
		return e.reply(ctx, ev.ChatID, chat.Text(noOfferText))
	}
	s.State = EnteringPhone
	return e.show(ctx, ev.ChatID, s, changePhonePrompt())
}

func (e *Engine) confirm(ctx context.Context, ev chat.Event, s *Session) error {
	e.clearScreen(ctx, ev, s)
	offer, number := s.Offer, s.Phone
	if offer == nil || number == "" {
		logger.Warn(ctx, component, "offer.missing", slog.String("state", s.State.String()))
		*s = Session{}
		return e.reply(ctx, ev.ChatID, chat.Text(noOfferText))
	}

	ref := e.newRef(e.now())
	s.Reference = ref
	var errs []error
	errs = append(errs, e.reply(ctx, ev.ChatID, confirmedMessage(offer, number, ref)))

	chargeCtx, cancel := context.WithTimeout(ctx, e.cfg.ChargeTimeout)
	res := e.payments.Charge(chargeCtx, payment.ChargeRequest{
		Phone:     number,
		Amount:    offer.Price,
		Reference: ref,
	})
	cancel()

	tx := payment.Transaction{
		Reference: ref,
		OfferID:   offer.ID,
		Phone:     number,
		Amount:    offer.Price,
		Outcome:   res.Outcome,
	}
	logger.Info(ctx, component, "purchase.done", tx.LogAttrs()...)

	*s = Session{}
	errs = append(errs, e.reply(ctx, ev.ChatID, outcomeMessage(res, ev.User.FirstName, ref)))
	return errors.Join(errs...)
}

func (e *Engine) cancel(ctx context.Context, ev chat.Event, s *Session) error {
	e.clearScreen(ctx, ev, s)
	logger.Info(ctx, component, "purchase.cancelled", slog.String("state", s.State.String()))
	*s = Session{}
	return e.reply(ctx, ev.ChatID, chat.Text(e.cancelText()))
}

func (e *Engine) menuMessage(cat catalog.Category) chat.Message {
	if cat == 0 {
		return rootMenu(rootMenuText)
	}
	return categoryMenu(cat, e.catalog.List(cat))
}

// register records the user; storage failures only cost the registration.
func (e *Engine) register(ctx context.Context, u chat.Identity) {
	if _, err := e.dir.Upsert(ctx, directory.Identity{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}); err != nil {
		logger.Warn(ctx, component, "register.failed", logger.Err(err))
	}
}

// show sends msg and remembers it as the screen to remove next.
func (e *Engine) show(ctx context.Context, chatID int64, s *Session, msg chat.Message) error {
	h, err := e.send(ctx, chatID, msg)
	s.LastMessage = h
	return err
}

func (e *Engine) reply(ctx context.Context, chatID int64, msg chat.Message) error {
	_, err := e.send(ctx, chatID, msg)
	return err
}

func (e *Engine) send(ctx context.Context, chatID int64, msg chat.Message) (chat.Handle, error) {
	h, err := e.msg.Send(ctx, chatID, msg)
	if err != nil {
		logger.Warn(ctx, component, "send.failed", logger.Err(err))
		return chat.Handle{}, fmt.Errorf("send message: %w", err)
	}
	return h, nil
}

// clearScreen removes the pressed message and the last tracked one.
func (e *Engine) clearScreen(ctx context.Context, ev chat.Event, s *Session) {
	e.discard(ctx, s.LastMessage)
	if ev.Source != s.LastMessage {
		e.discard(ctx, ev.Source)
	}
	s.LastMessage = chat.Handle{}
}

func (e *Engine) discard(ctx context.Context, h chat.Handle) {
	if h.IsZero() {
		return
	}
	if err := e.msg.Delete(ctx, h); err != nil {
		logger.Warn(ctx, component, "delete.failed",
			slog.String("message_id", h.MessageID),
			logger.Err(err),
		)
	}
}
