package ctdf

// Departure is a single real-time departure event at a stop as reported by the departures API.
// Times are kept as the text the API returned; an absent field is the empty string.
type Departure struct {
	Line          string `json:"line" groups:"basic,detailed"`
	Destination   string `json:"destination" groups:"basic,detailed"`
	ScheduledTime string `json:"scheduled_time" groups:"basic,detailed"`
	ActualTime    string `json:"actual_time" groups:"detailed"`
	Platform      string `json:"platform" groups:"basic,detailed"`
}
