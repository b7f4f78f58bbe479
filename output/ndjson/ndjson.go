// Package ndjson writes series points as newline delimited JSON.
package ndjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/OutOfBedlam/trendline/chart"
)

type Output struct {
	DestUrl string    // e.g. "http://127.0.0.1:5654/db/write/TAG", empty writes to W
	W       io.Writer // used when DestUrl is empty
	Client  *http.Client
}

type Record struct {
	Series string  `json:"series"`
	Time   float64 `json:"time"`
	Value  float64 `json:"value"`
}

// Encode writes one line per point, series by series.
func Encode(w io.Writer, series []chart.Series) error {
	enc := json.NewEncoder(w)
	for _, s := range series {
		for _, p := range s.Points {
			if err := enc.Encode(Record{Series: s.Name, Time: p.Time, Value: p.Value}); err != nil {
				return fmt.Errorf("error encoding %s: %w", s.Name, err)
			}
		}
	}
	return nil
}

func (o Output) Export(ctx context.Context, series []chart.Series) error {
	if o.DestUrl == "" {
		if o.W == nil {
			return fmt.Errorf("ndjson: no destination")
		}
		return Encode(o.W, series)
	}
	body := &bytes.Buffer{}
	if err := Encode(body, series); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.DestUrl, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	rsp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending points: %w", err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode/100 != 2 {
		return fmt.Errorf("error response from server: %s", rsp.Status)
	}
	return nil
}
