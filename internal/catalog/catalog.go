// Package catalog holds the static table of data bundle offers.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownOffer is returned when an offer id is not in the catalog.
var ErrUnknownOffer = errors.New("catalog: unknown offer")

// Offer is one purchasable data bundle.
type Offer struct {
	ID          string
	DisplayName string
	// Price is whole Kenyan shillings.
	Price       int
	Size        string
	Validity    string
	Description string
}

// Details renders the multi-line description shown after an offer is picked.
func (o Offer) Details() string {
	var b strings.Builder
	b.WriteString(o.DisplayName)
	if o.Size != "" {
		fmt.Fprintf(&b, "\nData: %s", o.Size)
	}
	if o.Validity != "" {
		fmt.Fprintf(&b, "\nValidity: %s", o.Validity)
	}
	if o.Description != "" {
		fmt.Fprintf(&b, "\nDescription: %s", o.Description)
	}
	return b.String()
}

// Category groups offers in the menu.
type Category int

const (
	Bingwa Category = iota + 1
	Normal
)

// bingwaMaxSuffix is the highest numeric id suffix listed under Bingwa deals.
const bingwaMaxSuffix = 8

// Categories lists every category in menu order.
var Categories = []Category{Bingwa, Normal}

// Key is the callback id of the category button.
func (c Category) Key() string {
	switch c {
	case Bingwa:
		return "bingwa_deals"
	case Normal:
		return "normal_deals"
	}
	return ""
}

// Label is the category button text.
func (c Category) Label() string {
	switch c {
	case Bingwa:
		return "🚀 Bingwa Data Deals"
	case Normal:
		return "📱 Normal Data Deals"
	}
	return ""
}

// Heading is the Markdown header of the category menu.
func (c Category) Heading() string {
	switch c {
	case Bingwa:
		return "🚀 *Bingwa Data Deals*\n\nOur special selection of premium data bundles. Please select a package:"
	case Normal:
		return "📱 *Normal Data Deals*\n\nStandard data bundles available for purchase. Please select a package:"
	}
	return ""
}

func (c Category) String() string {
	switch c {
	case Bingwa:
		return "bingwa"
	case Normal:
		return "normal"
	}
	return "unknown"
}

// CategoryByKey resolves a category button id.
func CategoryByKey(key string) (Category, bool) {
	for _, c := range Categories {
		if c.Key() == key {
			return c, true
		}
	}
	return 0, false
}

// CategoryOf partitions ids by their numeric suffix. Ids without a parsable
// suffix fall into Normal.
func CategoryOf(id string) Category {
	i := strings.LastIndexByte(id, '_')
	if i < 0 {
		return Normal
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n > bingwaMaxSuffix {
		return Normal
	}
	return Bingwa
}

// Catalog is an immutable, ordered set of offers.
type Catalog struct {
	offers []Offer
	byID   map[string]int
}

// New builds a catalog from offers. Ids must be unique and prices positive.
func New(offers []Offer) (*Catalog, error) {
	c := &Catalog{
		offers: make([]Offer, 0, len(offers)),
		byID:   make(map[string]int, len(offers)),
	}
	for _, o := range offers {
		if strings.TrimSpace(o.ID) == "" {
			return nil, fmt.Errorf("catalog: offer with empty id")
		}
		if _, dup := c.byID[o.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate offer id %q", o.ID)
		}
		if o.Price <= 0 {
			return nil, fmt.Errorf("catalog: offer %q has non-positive price %d", o.ID, o.Price)
		}
		c.byID[o.ID] = len(c.offers)
		c.offers = append(c.offers, o)
	}
	return c, nil
}

// Default returns the catalog of the standard bundle table.
func Default() *Catalog {
	c, err := New(defaultOffers)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the offer with the given id.
func (c *Catalog) Lookup(id string) (*Offer, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOffer, id)
	}
	o := c.offers[i]
	return &o, nil
}

// All returns every offer in table order.
func (c *Catalog) All() []Offer {
	return append([]Offer(nil), c.offers...)
}

// List returns the offers of one category in table order.
func (c *Catalog) List(cat Category) []Offer {
	var out []Offer
	for _, o := range c.offers {
		if CategoryOf(o.ID) == cat {
			out = append(out, o)
		}
	}
	return out
}

var defaultOffers = []Offer{
	{ID: "data_1", DisplayName: "1.25GB till midnight @ Ksh 55", Price: 55, Size: "1.25GB", Validity: "Until midnight", Description: "Same day data bundle"},
	{ID: "data_2", DisplayName: "250MB for 24hrs @ Ksh 18", Price: 18, Size: "250MB", Validity: "24 Hours", Description: "Daily data bundle"},
	{ID: "data_3", DisplayName: "1GB for 1hr @ Ksh 19", Price: 19, Size: "1GB", Validity: "1 Hour", Description: "Hourly data bundle"},
	{ID: "data_4", DisplayName: "Internet access for 3hrs @ Ksh 49", Price: 49, Size: "Unlimited", Validity: "3 Hours", Description: "Hourly access bundle"},
	{ID: "data_5", DisplayName: "1GB for 24hrs @ Ksh 95", Price: 95, Size: "1GB", Validity: "24 Hours", Description: "Daily data bundle"},
	{ID: "data_6", DisplayName: "350MB for 7 days @ Ksh 47", Price: 47, Size: "350MB", Validity: "7 Days", Description: "Weekly data bundle"},
	{ID: "data_7", DisplayName: "2GB for 24hrs @ Ksh 100", Price: 100, Size: "2GB", Validity: "24 Hours", Description: "Daily data bundle"},
	{ID: "data_8", DisplayName: "1.2GB for 30days @ Ksh 250", Price: 250, Size: "1.2GB", Validity: "30 Days", Description: "Monthly data bundle"},
	{ID: "data_9", DisplayName: "1GB for 1hr @ Ksh 20", Price: 20, Size: "1GB", Validity: "1 Hour", Description: "Hourly data bundle"},
	{ID: "data_10", DisplayName: "1.5GB for 3hrs @ Ksh 50", Price: 50, Size: "1.5GB", Validity: "3 Hours", Description: "Hourly data bundle"},
	{ID: "data_11", DisplayName: "2GB for 24hrs @ Ksh 100", Price: 100, Size: "2GB", Validity: "24 Hours", Description: "Daily data bundle"},
}
