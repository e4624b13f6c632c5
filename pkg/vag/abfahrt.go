package vag

import "github.com/travigo/vgnwatch/pkg/ctdf"

type DeparturesResponse struct {
	Departures []Abfahrt `json:"Abfahrten"`
}

// Abfahrt is one entry of the Abfahrten list. Only the fields we use are decoded.
type Abfahrt struct {
	Linienname       string `json:"Linienname"`
	Richtungstext    string `json:"Richtungstext"`
	AbfahrtszeitSoll string `json:"AbfahrtszeitSoll"`
	AbfahrtszeitIst  string `json:"AbfahrtszeitIst"`
	HaltesteigText   string `json:"HaltesteigText"`
	Produkt          string `json:"Produkt"`
	Prognose         bool   `json:"Prognose"`
}

func (a *Abfahrt) ToDeparture() *ctdf.Departure {
	return &ctdf.Departure{
		Line:          a.Linienname,
		Destination:   a.Richtungstext,
		ScheduledTime: a.AbfahrtszeitSoll,
		ActualTime:    a.AbfahrtszeitIst,
		Platform:      a.HaltesteigText,
	}
}
