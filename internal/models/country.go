package models

// Country holds the dialing and currency facts for a supported market.
type Country struct {
	Code     string `json:"code"`
	DialCode string `json:"dial_code"`
	Currency string `json:"currency"`
}

var (
	Ghana   = Country{Code: "GH", DialCode: "+233", Currency: "GHS"}
	Nigeria = Country{Code: "NG", DialCode: "+234", Currency: "NGN"}
)

var countries = map[string]Country{
	Ghana.Code:   Ghana,
	Nigeria.Code: Nigeria,
}

func CountryByCode(code string) (Country, bool) {
	c, ok := countries[code]
	return c, ok
}
