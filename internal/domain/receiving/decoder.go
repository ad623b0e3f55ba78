package receiving

import (
	"strconv"
	"strings"
	"time"

	"inbound/internal/core/apperror"
	"inbound/internal/core/id"
)

// KeyedDecoder parses structured key=value scanner payloads into scan
// records. Fields are semicolon-separated:
//
//	ITM=<item uuid>;QTY=3;BAT=B-17;PRD=2026-01-10;EXP=2027-01-10
//
// A bare token without '=' is treated as the item id. An absent or
// unparseable item id yields a record with a nil ItemID - classifying that
// is the scan channel's job, not the decoder's. Quantity defaults to 1.
//
// Real symbology decoding (GS1, Data Matrix) is a collaborator concern; this
// decoder covers the structured payloads used by handheld terminals and
// serves as the reference Decoder implementation.
type KeyedDecoder struct{}

const dateLayout = "2006-01-02"

// Decode implements Decoder.
func (KeyedDecoder) Decode(raw string) (ScanRecord, error) {
	rec := ScanRecord{Raw: raw, Qty: 1}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return rec, apperror.NewValidation("empty scan input")
	}

	for _, field := range strings.Split(trimmed, ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		key, value, found := strings.Cut(field, "=")
		if !found {
			rec.ItemID = parseItemID(field)
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "ITM":
			rec.ItemID = parseItemID(value)
		case "QTY":
			n, err := strconv.Atoi(value)
			if err != nil {
				return rec, apperror.NewValidation("invalid quantity in code").
					WithDetail("value", value)
			}
			rec.Qty = n
		case "BAT":
			rec.BatchCode = value
		case "PRD":
			t, err := time.Parse(dateLayout, value)
			if err != nil {
				return rec, apperror.NewValidation("invalid production date in code").
					WithDetail("value", value)
			}
			rec.ProductionDate = &t
		case "EXP":
			t, err := time.Parse(dateLayout, value)
			if err != nil {
				return rec, apperror.NewValidation("invalid expiry date in code").
					WithDetail("value", value)
			}
			rec.ExpiryDate = &t
		}
		// Unknown keys are ignored: scanner firmware adds vendor fields.
	}
	return rec, nil
}

func parseItemID(s string) *id.ID {
	parsed, err := id.Parse(strings.TrimSpace(s))
	if err != nil || id.IsNil(parsed) {
		return nil
	}
	return &parsed
}

// Ensure compile-time interface compliance.
var _ Decoder = KeyedDecoder{}
