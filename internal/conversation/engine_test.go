package conversation

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bingwamta/databot/core/telegram/state"
	"github.com/bingwamta/databot/internal/catalog"
	"github.com/bingwamta/databot/internal/chat"
	"github.com/bingwamta/databot/internal/chat/chattest"
	"github.com/bingwamta/databot/internal/directory"
	"github.com/bingwamta/databot/internal/payment"
)

type fakeCharger struct {
	mu     sync.Mutex
	calls  []payment.ChargeRequest
	result payment.Result
}

func (f *fakeCharger) Charge(ctx context.Context, req payment.ChargeRequest) payment.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if _, ok := ctx.Deadline(); !ok {
		return payment.Result{Outcome: payment.Error, Detail: "no deadline"}
	}
	return f.result
}

func (f *fakeCharger) Calls() []payment.ChargeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]payment.ChargeRequest(nil), f.calls...)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	engine  *Engine
	msgs    *chattest.Recorder
	charger *fakeCharger
	dir     *directory.FileStore
	clock   *testClock
	user    chat.Identity
	chatID  int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)}
	dir, err := directory.OpenFile(filepath.Join(t.TempDir(), "users.json"), directory.WithClock(clock.Now))
	require.NoError(t, err)
	h := &harness{
		msgs:    chattest.New(),
		charger: &fakeCharger{result: payment.Result{Outcome: payment.Pending, Status: "QUEUED", HTTPStatus: 201}},
		dir:     dir,
		clock:   clock,
		user:    chat.Identity{ID: 100, Username: "jane", FirstName: "Jane"},
		chatID:  100,
	}
	h.engine, err = New(Config{
		BotName:        "Bingwa Data Deals Bot",
		Version:        "1.0.0",
		SupportContact: "@bingwamta",
		SupportPhone:   "0707071631",
	}, Deps{
		Catalog:      catalog.Default(),
		Directory:    dir,
		Payments:     h.charger,
		Messenger:    h.msgs,
		Now:          clock.Now,
		NewReference: payment.NewReference,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) key() state.Key { return state.Key{UserID: h.user.ID, ChatID: h.chatID} }

func (h *harness) command(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, h.engine.Handle(context.Background(), chat.Event{
		Kind: chat.KindCommand, Name: name, User: h.user, ChatID: h.chatID,
	}))
}

// press clicks a button on the most recent message that carries buttons.
func (h *harness) press(t *testing.T, data string) {
	t.Helper()
	var source chat.Handle
	sent := h.msgs.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if len(sent[i].Message.Buttons) > 0 {
			source = sent[i].Handle
			break
		}
	}
	require.NoError(t, h.engine.Handle(context.Background(), chat.Event{
		Kind: chat.KindButton, Name: data, Data: data, User: h.user, ChatID: h.chatID, Source: source,
	}))
}

func (h *harness) text(t *testing.T, s string) {
	t.Helper()
	require.NoError(t, h.engine.Handle(context.Background(), chat.Event{
		Kind: chat.KindText, Text: s, User: h.user, ChatID: h.chatID,
	}))
}

func (h *harness) last(t *testing.T) chat.Message {
	t.Helper()
	s, ok := h.msgs.Last()
	require.True(t, ok, "nothing was sent")
	return s.Message
}

func TestPurchaseHappyPath(t *testing.T) {
	h := newHarness(t)

	h.command(t, CmdStart)
	sent := h.msgs.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Message.Text, "Welcome to Bingwa Data Deals Bot, Jane!")
	assert.Contains(t, sent[0].Message.Text, "@bingwamta")
	assert.Equal(t, []string{"bingwa_deals", "normal_deals", "support", "cancel_purchase"}, chattest.Buttons(sent[1].Message))
	assert.Equal(t, ChoosingPackage, h.engine.State(h.key()))

	h.press(t, "bingwa_deals")
	menu := h.last(t)
	assert.True(t, menu.Markdown)
	var offers []string
	for _, id := range chattest.Buttons(menu) {
		if strings.HasPrefix(id, "data_") {
			offers = append(offers, id)
			assert.Equal(t, catalog.Bingwa, catalog.CategoryOf(id), id)
		}
	}
	assert.Len(t, offers, 8)
	assert.Contains(t, h.msgs.Deletes(), sent[1].Handle, "root menu must be removed")

	h.press(t, "data_3")
	assert.Equal(t, EnteringPhone, h.engine.State(h.key()))
	assert.Contains(t, h.last(t).Text, "You selected: 1GB for 1hr @ Ksh 19")

	h.text(t, "0712345678")
	assert.Equal(t, ConfirmingPurchase, h.engine.State(h.key()))
	summary := h.last(t)
	assert.Contains(t, summary.Text, "Phone Number: 254712345678")
	assert.Contains(t, summary.Text, "Price: KSh 19")
	assert.Equal(t, []string{"confirm_purchase", "change_phone", "cancel_purchase"}, chattest.Buttons(summary))

	h.press(t, "confirm_purchase")
	calls := h.charger.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "254712345678", calls[0].Phone)
	assert.Equal(t, 19, calls[0].Amount)
	assert.Regexp(t, `^BINGWA-20240601093000-[0-9a-f]{12}$`, calls[0].Reference)
	assert.Equal(t, Idle, h.engine.State(h.key()))

	all := h.msgs.Sent()
	confirmed := all[len(all)-2].Message.Text
	assert.Contains(t, confirmed, "Purchase confirmed")
	assert.Contains(t, confirmed, calls[0].Reference)
	assert.Contains(t, h.last(t).Text, "Payment Processing")

	p, err := h.dir.Get(context.Background(), h.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane", p.Username)
}

func TestInvalidPhoneKeepsState(t *testing.T) {
	h := newHarness(t)
	h.command(t, CmdBundles)
	h.press(t, "normal_deals")
	h.press(t, "data_10")
	prompt, _ := h.msgs.Last()

	h.text(t, "abc123")
	assert.Equal(t, EnteringPhone, h.engine.State(h.key()))
	assert.Contains(t, h.last(t).Text, "Invalid phone number format")
	assert.Contains(t, h.msgs.Deletes(), prompt.Handle)
	assert.Empty(t, h.charger.Calls())

	s, ok := h.engine.sessions.Peek(h.key())
	require.True(t, ok)
	assert.Empty(t, s.Phone)
	require.NotNil(t, s.Offer)
	assert.Equal(t, "data_10", s.Offer.ID)

	h.text(t, "+254 112 345 678")
	assert.Equal(t, ConfirmingPurchase, h.engine.State(h.key()))
	assert.Contains(t, h.last(t).Text, "254112345678")
}

func TestInvalidSelectionRerendersMenu(t *testing.T) {
	h := newHarness(t)
	h.command(t, CmdBundles)
	h.press(t, "normal_deals")

	h.press(t, "data_99")
	assert.Equal(t, ChoosingPackage, h.engine.State(h.key()))
	msg := h.last(t)
	assert.True(t, strings.HasPrefix(msg.Text, "Invalid package selection."))
	assert.Contains(t, chattest.Buttons(msg), "data_9")
	assert.NotContains(t, chattest.Buttons(msg), "data_1")
}

func TestBackToCategories(t *testing.T) {
	h := newHarness(t)
	h.command(t, CmdBundles)
	h.press(t, "bingwa_deals")
	h.press(t, "back_to_categories")
	assert.Equal(t, ChoosingPackage, h.engine.State(h.key()))
	assert.Equal(t, "Please select a category:", h.last(t).Text)
}

func TestSupportButtonKeepsMenu(t *testing.T) {
	h := newHarness(t)
	h.command(t, CmdBundles)
	before := len(h.msgs.Deletes())
	h.press(t, "support")
	assert.Equal(t, ChoosingPackage, h.engine.State(h.key()))
	assert.Contains(t, h.last(t).Text, "Customer Support")
	assert.Len(t, h.msgs.Deletes(), before)
}

func TestChangePhone(t *testing.T) {
	h := newHarness(t)
	h.command(t, CmdBundles)
	h.press(t, "bingwa_deals")
	h.press(t, "data_1")
	h.text(t, "0712345678")

	h.press(t, "change_phone")
	assert.Equal(t, EnteringPhone, h.engine.State(h.key()))
	assert.Contains(t, h.last(t).Text, "different phone number")

	h.text(t, "0798765432")
	h.press(t, "confirm_purchase")
	calls := h.charger.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "254798765432", calls[0].Phone)
	assert.Equal(t, 55, calls[0].Amount)
}

func TestCancelFromAnyState(t *testing.T) {
	for _, via := range []string{"button", "command"} {
		t.Run(via, func(t *testing.T) {
			h := newHarness(t)
			h.command(t, CmdBundles)
			h.press(t, "bingwa_deals")
			h.press(t, "data_2")

			if via == "button" {
				require.NoError(t, h.engine.Handle(context.Background(), chat.Event{
					Kind: chat.KindButton, Name: BtnCancel, User: h.user, ChatID: h.chatID,
				}))
			} else {
				h.command(t, CmdCancel)
			}
			assert.Equal(t, Idle, h.engine.State(h.key()))
			assert.Contains(t, h.last(t).Text, "You have cancelled your purchase")
			assert.Empty(t, h.charger.Calls())
		})
	}
}

func TestRestartClearsSession(t *testing.T) {
	h := newHarness(t)
	h.command(t, CmdBundles)
	h.press(t, "bingwa_deals")
	h.press(t, "data_2")

	h.command(t, CmdRestart)
	assert.Equal(t, ChoosingPackage, h.engine.State(h.key()))
	s, ok := h.engine.sessions.Peek(h.key())
	require.True(t, ok)
	assert.Nil(t, s.Offer)

	sent := h.msgs.Sent()
	assert.Contains(t, sent[len(sent)-2].Message.Text, "Bot has been restarted")
}

func TestButtonsInIdleAreExpired(t *testing.T) {
	h := newHarness(t)
	h.press(t, "confirm_purchase")
	assert.Equal(t, expiredText, h.last(t).Text)
	assert.Empty(t, h.charger.Calls())
}

func TestForeignButtonIgnored(t *testing.T) {
	h := newHarness(t)
	h.command(t, CmdBundles)
	h.press(t, "bingwa_deals")
	h.press(t, "data_2")
	count := len(h.msgs.Sent())

	h.press(t, "confirm_purchase")
	assert.Equal(t, EnteringPhone, h.engine.State(h.key()))
	assert.Len(t, h.msgs.Sent(), count)
	assert.Empty(t, h.charger.Calls())
}

func TestIdleTimeoutResetsSession(t *testing.T) {
	h := newHarness(t)
	h.command(t, CmdBundles)
	h.press(t, "bingwa_deals")
	h.press(t, "data_2")

	h.clock.Advance(DefaultSessionTimeout + time.Second)
	assert.Equal(t, Idle, h.engine.State(h.key()))

	count := len(h.msgs.Sent())
	h.text(t, "0712345678")
	assert.Len(t, h.msgs.Sent(), count, "text after expiry is not a phone answer")
}

func TestInformationalCommands(t *testing.T) {
	h := newHarness(t)
	h.command(t, CmdHelp)
	assert.Contains(t, h.last(t).Text, "3 minutes of inactivity")
	h.command(t, CmdAbout)
	assert.Contains(t, h.last(t).Text, "v1.0.0")
	h.command(t, CmdSupport)
	assert.Contains(t, h.last(t).Text, "0707071631")
	assert.Equal(t, Idle, h.engine.State(h.key()))

	n, err := h.dir.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPaymentOutcomeMessages(t *testing.T) {
	cases := map[payment.Outcome]string{
		payment.Success: "Payment Successful",
		payment.Pending: "Payment Processing",
		payment.Failed:  "Payment Failed",
		payment.Error:   "Error Processing Payment",
	}
	for outcome, want := range cases {
		t.Run(outcome.String(), func(t *testing.T) {
			h := newHarness(t)
			h.charger.result = payment.Result{Outcome: outcome}
			h.command(t, CmdBundles)
			h.press(t, "bingwa_deals")
			h.press(t, "data_5")
			h.text(t, "0712345678")
			h.press(t, "confirm_purchase")
			assert.Contains(t, h.last(t).Text, want)
			assert.Equal(t, Idle, h.engine.State(h.key()))
		})
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	h := newHarness(t)
	h.command(t, CmdBundles)
	h.press(t, "bingwa_deals")

	other := chat.Identity{ID: 200, FirstName: "Otieno"}
	require.NoError(t, h.engine.Handle(context.Background(), chat.Event{
		Kind: chat.KindCommand, Name: CmdStart, User: other, ChatID: 200,
	}))
	assert.Equal(t, ChoosingPackage, h.engine.State(state.Key{UserID: 200, ChatID: 200}))
	assert.Equal(t, ChoosingPackage, h.engine.State(h.key()))

	s, ok := h.engine.sessions.Peek(h.key())
	require.True(t, ok)
	assert.Equal(t, catalog.Bingwa, s.Menu)
}

func TestNewValidatesDeps(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}
