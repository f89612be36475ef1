package resy

import "encoding/json"

// Slot is one bookable offering as returned by the find endpoint.
// Date.Start is a local datetime string like "2024-05-01 19:00:00".
type Slot struct {
	Date struct {
		Start string `json:"start"`
	} `json:"date"`
	Config struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	} `json:"config"`
	Shift struct {
		Day string `json:"day"`
	} `json:"shift"`
}

type SlotDetails struct {
	BookToken struct {
		Value string `json:"value"`
	} `json:"book_token"`
}

type PaymentMethod struct {
	ID int64 `json:"id"`
}

type User struct {
	PaymentMethods []PaymentMethod `json:"payment_methods"`
}

// Reservation is the booking commit response. Raw keeps the full payload
// for persistence alongside the fields we care about.
type Reservation struct {
	ReservationID int64  `json:"reservation_id"`
	ResyToken     string `json:"resy_token"`

	Raw json.RawMessage `json:"-"`
}
