package app

import (
	"bytes"
	"encoding/json"
	"fmt"

	dom "github.com/platewire/api/pkg/domain/delivery"
	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/domain/webhook"
)

// Translator converts inbound event payloads into provider delivery requests.
// Pickup details come from the destination integration's settings (the store);
// dropoff details come from the event's customer shipping block.
type Translator struct{}

// NewTranslator creates a new Translator.
func NewTranslator() *Translator {
	return &Translator{}
}

// orderPayload is the normalized shape of an ecommerce order.created event.
// Field aliases cover the common platform variants.
type orderPayload struct {
	ID          json.Number `json:"id"`
	OrderNumber string      `json:"order_number"`
	Total       json.Number `json:"total"`
	TotalPrice  json.Number `json:"total_price"`
	Currency    string      `json:"currency"`
	Tip         json.Number `json:"tip"`

	Customer struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Name      string `json:"name"`
		Phone     string `json:"phone"`
	} `json:"customer"`

	ShippingAddress *orderAddress `json:"shipping_address"`
	Shipping        *orderAddress `json:"shipping"`

	LineItems []orderLineItem `json:"line_items"`
	Items     []orderLineItem `json:"items"`

	Note string `json:"note"`
}

type orderAddress struct {
	Name      string      `json:"name"`
	Address1  string      `json:"address_1"`
	Address1S string      `json:"address1"`
	Address2  string      `json:"address_2"`
	City      string      `json:"city"`
	State     string      `json:"state"`
	Province  string      `json:"province"`
	Zip       string      `json:"zip"`
	Postcode  string      `json:"postcode"`
	Phone     string      `json:"phone"`
	Latitude  json.Number `json:"latitude"`
	Longitude json.Number `json:"longitude"`
}

type orderLineItem struct {
	Name     string      `json:"name"`
	Title    string      `json:"title"`
	Quantity int         `json:"quantity"`
	Price    json.Number `json:"price"`
}

// TranslateOrder builds a CreateRequest from an order.created payload and the
// destination integration that will fulfill it.
func (t *Translator) TranslateOrder(eventType string, payload map[string]any, intg *integration.Integration) (*dom.CreateRequest, error) {
	if eventType != webhook.EventOrderCreated {
		return nil, fmt.Errorf("%w: cannot translate event type %q into a delivery", shared.ErrValidation, eventType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable order payload", shared.ErrValidation)
	}

	var order orderPayload
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: malformed order payload", shared.ErrValidation)
	}

	dropoff, err := t.dropoffLocation(&order)
	if err != nil {
		return nil, err
	}
	pickup, err := t.pickupLocation(intg)
	if err != nil {
		return nil, err
	}

	items := t.items(&order)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order has no line items", shared.ErrValidation)
	}

	externalRef := order.OrderNumber
	if externalRef == "" {
		externalRef = order.ID.String()
	}

	currency := order.Currency
	if currency == "" {
		currency = "USD"
	}

	return &dom.CreateRequest{
		ExternalRef: externalRef,
		Pickup:      pickup,
		Dropoff:     dropoff,
		Items:       items,
		OrderValue:  numberToFloat(firstNumber(order.Total, order.TotalPrice)),
		Currency:    currency,
		Tip:         numberToFloat(order.Tip),
	}, nil
}

func (t *Translator) pickupLocation(intg *integration.Integration) (*dom.Location, error) {
	address := intg.SettingString("store_address")
	if address == "" {
		return nil, fmt.Errorf("%w: integration has no store_address setting", shared.ErrValidation)
	}
	return &dom.Location{
		Name:         firstNonEmpty(intg.SettingString("store_name"), "Store"),
		Address:      address,
		Phone:        intg.SettingString("store_phone"),
		Instructions: intg.SettingString("pickup_instructions"),
	}, nil
}

func (t *Translator) dropoffLocation(order *orderPayload) (*dom.Location, error) {
	addr := order.ShippingAddress
	if addr == nil {
		addr = order.Shipping
	}
	if addr == nil {
		return nil, fmt.Errorf("%w: order has no shipping address", shared.ErrValidation)
	}

	line1 := firstNonEmpty(addr.Address1, addr.Address1S)
	if line1 == "" {
		return nil, fmt.Errorf("%w: shipping address is missing a street line", shared.ErrValidation)
	}

	full := line1
	if addr.Address2 != "" {
		full += ", " + addr.Address2
	}
	if addr.City != "" {
		full += ", " + addr.City
	}
	if region := firstNonEmpty(addr.State, addr.Province); region != "" {
		full += ", " + region
	}
	if zip := firstNonEmpty(addr.Zip, addr.Postcode); zip != "" {
		full += " " + zip
	}

	name := firstNonEmpty(
		addr.Name,
		order.Customer.Name,
		joinName(order.Customer.FirstName, order.Customer.LastName),
	)

	return &dom.Location{
		Name:         name,
		Address:      full,
		Phone:        firstNonEmpty(addr.Phone, order.Customer.Phone),
		Instructions: order.Note,
		Latitude:     numberToFloat(addr.Latitude),
		Longitude:    numberToFloat(addr.Longitude),
	}, nil
}

func (t *Translator) items(order *orderPayload) []dom.Item {
	source := order.LineItems
	if len(source) == 0 {
		source = order.Items
	}

	items := make([]dom.Item, 0, len(source))
	for _, li := range source {
		name := firstNonEmpty(li.Name, li.Title)
		if name == "" {
			continue
		}
		quantity := li.Quantity
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, dom.Item{
			Name:     name,
			Quantity: quantity,
			Price:    numberToFloat(li.Price),
		})
	}
	return items
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNumber(values ...json.Number) json.Number {
	for _, v := range values {
		if v.String() != "" {
			return v
		}
	}
	return ""
}

func numberToFloat(n json.Number) float64 {
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
