package conversation

import (
	"github.com/bingwamta/databot/internal/catalog"
	"github.com/bingwamta/databot/internal/chat"
)

// State is a step of the purchase flow.
type State int

const (
	Idle State = iota
	ChoosingPackage
	EnteringPhone
	ConfirmingPurchase
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ChoosingPackage:
		return "choosing_package"
	case EnteringPhone:
		return "entering_phone"
	case ConfirmingPurchase:
		return "confirming_purchase"
	}
	return "unknown"
}

// Session is the per-(user, chat) purchase progress.
type Session struct {
	State State
	// Menu is the category on screen while choosing; zero means the root menu.
	Menu      catalog.Category
	Offer     *catalog.Offer
	Phone     string
	Reference string
	// LastMessage is the bot message to remove on the next screen change.
	LastMessage chat.Handle
}
