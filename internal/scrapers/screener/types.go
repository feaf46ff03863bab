package screener

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UnknownSymbol is the symbol given to rows that carry neither an nse nor a
// bse code.
const UnknownSymbol = "Unknown"

type ResultRow struct {
	Symbol     string
	Name       string
	NseCode    string
	BseCode    string
	ClosePrice float64
	Volume     float64
}

// ResolveSymbol picks the nse code, then the bse code, then UnknownSymbol.
// Blank codes count as absent.
func ResolveSymbol(nseCode, bseCode string) string {
	if code := strings.TrimSpace(nseCode); code != "" {
		return code
	}
	if code := strings.TrimSpace(bseCode); code != "" {
		return code
	}
	return UnknownSymbol
}

// flexNumber accepts a json number, a numeric string or null. Anything it
// cannot make sense of becomes 0.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		err := json.Unmarshal(data, &s)
		if err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = flexNumber(f)
		return nil
	}
	var f float64
	err := json.Unmarshal(data, &f)
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexNumber(f)
	return nil
}

// flexString accepts a json string, a number (bse codes are sometimes sent
// as integers) or null.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		err := json.Unmarshal(data, &str)
		if err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	*s = flexString(data)
	return nil
}

type processRow struct {
	NseCode flexString `json:"nsecode"`
	BseCode flexString `json:"bsecode"`
	Name    flexString `json:"name"`
	Close   flexNumber `json:"close"`
	Volume  flexNumber `json:"volume"`
}

type processResponse struct {
	Data []processRow `json:"data"`
}

func (r processRow) resultRow() ResultRow {
	return ResultRow{
		Symbol:     ResolveSymbol(string(r.NseCode), string(r.BseCode)),
		Name:       string(r.Name),
		NseCode:    strings.TrimSpace(string(r.NseCode)),
		BseCode:    strings.TrimSpace(string(r.BseCode)),
		ClosePrice: float64(r.Close),
		Volume:     float64(r.Volume),
	}
}

type Stage string

const (
	STAGE_LAUNCH   Stage = "launch"
	STAGE_INSTALL  Stage = "install"
	STAGE_NAVIGATE Stage = "navigate"
	STAGE_CAPTURE  Stage = "capture"
	STAGE_REPLAY   Stage = "replay"
)

// ExtractionError is returned by Engine.Extract when a stage fails in a way
// that cannot degrade to an empty result.
type ExtractionError struct {
	Stage Stage
	URL   string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("screener: %s %s: %v", e.Stage, e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ReplayError is returned when the process endpoint answers with a
// non-success status or a body that is not the expected json.
type ReplayError struct {
	Status int
	Body   string
	Err    error
}

func (e *ReplayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("replay: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("replay: status %d", e.Status)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}

var ErrElementNotFound = errors.New("element not found")
