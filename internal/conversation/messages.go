package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/bingwamta/databot/core/telegram/format"
	"github.com/bingwamta/databot/internal/catalog"
	"github.com/bingwamta/databot/internal/chat"
	"github.com/bingwamta/databot/internal/payment"
)

// Command names handled by the engine.
const (
	CmdStart   = "start"
	CmdBundles = "bundles"
	CmdRestart = "restart"
	CmdCancel  = "cancel"
	CmdHelp    = "help"
	CmdAbout   = "about"
	CmdSupport = "support"
)

// Button ids besides the category keys and offer ids.
const (
	BtnBackToCategories = "back_to_categories"
	BtnSupport          = "support"
	BtnCancel           = "cancel_purchase"
	BtnConfirm          = "confirm_purchase"
	BtnChangePhone      = "change_phone"
)

// Buttons lists the fixed button ids the engine understands.
var Buttons = []string{
	catalog.Bingwa.Key(),
	catalog.Normal.Key(),
	BtnBackToCategories,
	BtnSupport,
	BtnCancel,
	BtnConfirm,
	BtnChangePhone,
}

const (
	rootMenuWelcome = "Welcome to Bingwa Data Deals! Please select a category:"
	rootMenuText    = "Please select a category:"
	invalidOffer    = "Invalid package selection. Please try again."
	acceptedFormats = "Accepted formats: 07XXXXXXXX, 01XXXXXXXX, +254XXXXXXXXX, 254XXXXXXXXX"
	restartText     = "🔄 Bot has been restarted. Your previous session has been cleared.\n\nYou can now start a new purchase."
	expiredText     = "This menu has expired. Send /bundles to see the available data bundles."
	noOfferText     = "No package selected. Please try again with /bundles."
)

func (e *Engine) welcomeText(u chat.Identity) string {
	name := strings.TrimSpace(u.FirstName)
	if name == "" {
		name = u.DisplayName()
	}
	return fmt.Sprintf("Welcome to %s, %s!\n\nI can help you purchase mobile data bundles quickly and easily.\n\nNeed help? Contact our support at %s or call %s",
		e.cfg.BotName, name, e.cfg.SupportContact, e.cfg.SupportPhone)
}

func (e *Engine) supportMessage() chat.Message {
	return chat.Message{
		Text: fmt.Sprintf("📞 *Customer Support*\n\nIf you need assistance, please contact us through:\n\n• Telegram: %s\n• Phone: %s\n\nWe're here to help you with any questions or issues!",
			format.MD(e.cfg.SupportContact), format.MD(e.cfg.SupportPhone)),
		Markdown: true,
	}
}

func (e *Engine) helpMessage() chat.Message {
	return chat.Message{
		Text: "*Welcome to Data Bundles Bot*\n\n" +
			"This bot helps you purchase data bundles quickly and easily.\n\n" +
			"*Available Commands:*\n" +
			"/start - Start the bot\n" +
			"/bundles - View available data bundles\n" +
			"/help - Show this help message\n" +
			"/restart - Reset the bot if you get stuck\n" +
			"/cancel - Cancel the current purchase\n" +
			"/support - Contact customer support\n" +
			"/about - Information about this service\n\n" +
			"To purchase a data bundle, follow these steps:\n" +
			"1. Choose a data bundle from the menu\n" +
			"2. Enter the phone number\n" +
			"3. Confirm your purchase\n" +
			"4. Complete the payment via M-PESA\n\n" +
			fmt.Sprintf("*Note:* Conversations will automatically reset after %s of inactivity. You can also use /restart at any time to start over.\n\n", e.timeoutText()) +
			"If you need assistance, please contact our support.",
		Markdown: true,
	}
}

func (e *Engine) aboutMessage() chat.Message {
	return chat.Message{
		Text: fmt.Sprintf("*%s v%s*\n\nA convenient way to purchase mobile data bundles directly through Telegram.\n\nFor support, please contact us at %s",
			format.MD(e.cfg.BotName), format.MD(e.cfg.Version), format.MD(e.cfg.SupportContact)),
		Markdown: true,
	}
}

func (e *Engine) timeoutText() string {
	d := e.cfg.SessionTimeout
	switch {
	case d%time.Minute != 0:
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	case d == time.Minute:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}

func (e *Engine) cancelText() string {
	return fmt.Sprintf("You have cancelled your purchase. If you need assistance, please contact our support at %s or call %s.\n\nYou can start a new purchase anytime by sending /bundles.",
		e.cfg.SupportContact, e.cfg.SupportPhone)
}

func rootMenu(text string) chat.Message {
	return chat.Message{
		Text: text,
		Buttons: [][]chat.Button{
			{{Label: catalog.Bingwa.Label(), Data: catalog.Bingwa.Key()}},
			{{Label: catalog.Normal.Label(), Data: catalog.Normal.Key()}},
			{{Label: "📞 Customer Support", Data: BtnSupport}},
			{{Label: "❌ Cancel", Data: BtnCancel}},
		},
	}
}

func categoryMenu(cat catalog.Category, offers []catalog.Offer) chat.Message {
	rows := make([][]chat.Button, 0, len(offers)+3)
	for _, o := range offers {
		rows = append(rows, []chat.Button{{Label: o.DisplayName, Data: o.ID}})
	}
	rows = append(rows,
		[]chat.Button{{Label: "⬅️ Back to Categories", Data: BtnBackToCategories}},
		[]chat.Button{{Label: "📞 Customer Support", Data: BtnSupport}},
		[]chat.Button{{Label: "❌ Cancel", Data: BtnCancel}},
	)
	return chat.Message{Text: cat.Heading(), Markdown: true, Buttons: rows}
}

func phonePrompt(o *catalog.Offer) chat.Message {
	return chat.Text(fmt.Sprintf("You selected: %s\n\nPlease enter the phone number to purchase this package for:\n\n%s",
		o.Details(), acceptedFormats))
}

func changePhonePrompt() chat.Message {
	return chat.Text("Please enter a different phone number:\n\n" + acceptedFormats)
}

func invalidPhoneMessage() chat.Message {
	return chat.Text("❌ Invalid phone number format. Please enter a valid Kenyan phone number.\n\n" + acceptedFormats)
}

func summaryMessage(o *catalog.Offer, phone string) chat.Message {
	return chat.Message{
		Text: fmt.Sprintf("📋 *Purchase Summary*\n\nData Bundle: %s\nSize: %s\nValidity: %s\nPhone Number: %s\nPrice: KSh %d\n\nPlease confirm your purchase:",
			format.MD(o.DisplayName), format.MD(o.Size), format.MD(o.Validity), phone, o.Price),
		Markdown: true,
		Buttons: [][]chat.Button{
			{{Label: "✅ Confirm Purchase", Data: BtnConfirm}},
			{{Label: "🔄 Change Phone Number", Data: BtnChangePhone}},
			{{Label: "❌ Cancel", Data: BtnCancel}},
		},
	}
}

func confirmedMessage(o *catalog.Offer, phone, ref string) chat.Message {
	return chat.Text(fmt.Sprintf("✅ Purchase confirmed!\n\n• Package: %s\n• Phone: %s\n• Price: KSh %d\n• Reference: %s\n\nProcessing payment...\n\nPlease complete the payment on your phone when prompted.",
		o.DisplayName, phone, o.Price, ref))
}

func outcomeMessage(res payment.Result, firstName, ref string) chat.Message {
	var text string
	switch res.Outcome {
	case payment.Success:
		if strings.TrimSpace(firstName) == "" {
			firstName = "Valued Customer"
		}
		text = fmt.Sprintf("✅ *Payment Successful*\n\nThank you %s for your purchase! Your data bundle has been activated.\n\nReference: `%s`",
			format.MD(firstName), ref)
	case payment.Pending:
		text = fmt.Sprintf("🔄 *Payment Processing*\n\nPlease check your phone and complete the payment.\n\nReference: `%s`\n\nIf you need assistance, please contact our support.", ref)
	case payment.Failed:
		text = "❌ *Payment Failed*\n\nSorry, we couldn't process your payment. Please try again later.\n\nIf the issue persists, please contact our support."
	default:
		text = "❌ *Error Processing Payment*\n\nAn error occurred while processing your payment. Please try again later.\n\nIf the issue persists, please contact our support."
	}
	return chat.Message{Text: text, Markdown: true}
}
