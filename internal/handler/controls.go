package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/capitalize-ai/covid-dashboard/internal/llm"
	"github.com/capitalize-ai/covid-dashboard/internal/middleware"
)

// controls are the sidebar and selection values, re-read from every request.
type controls struct {
	Variant     llm.Variant
	Temperature float64
	Countries   []string
}

// parseControls reads the model, temperature and country controls from the
// request form. Without a "countries" marker the default selection applies,
// so a deliberately empty selection stays empty.
func parseControls(r *http.Request, defaults []string) (controls, error) {
	if err := r.ParseForm(); err != nil {
		return controls{}, err
	}

	variant, err := llm.ParseVariant(r.Form.Get("model"))
	if err != nil {
		return controls{}, err
	}
	temperature, err := llm.ParseTemperature(r.Form.Get("temperature"))
	if err != nil {
		return controls{}, err
	}

	countries := defaults
	if r.Form.Has("countries") {
		countries = r.Form["country"]
	}
	if err := middleware.ValidateCountries(countries); err != nil {
		return controls{}, err
	}

	return controls{Variant: variant, Temperature: temperature, Countries: countries}, nil
}

// query encodes the controls so a redirect lands on the same view.
func (c controls) query() url.Values {
	v := url.Values{}
	v.Set("model", string(c.Variant))
	v.Set("temperature", strconv.FormatFloat(c.Temperature, 'f', 1, 64))
	v.Set("countries", "1")
	for _, country := range c.Countries {
		v.Add("country", country)
	}
	return v
}

func (c controls) chartURL() string {
	v := url.Values{}
	for _, country := range c.Countries {
		v.Add("country", country)
	}
	if len(v) == 0 {
		return "/chart"
	}
	return "/chart?" + v.Encode()
}
