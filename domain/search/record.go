package search

import "encoding/json"

// RecordMeta is the per-entry metadata stored alongside each indexed
// vector. Text and PremiumINR are the typed fields the quote flow reads;
// everything else from the source record is preserved in Extra so the
// metadata artifact round-trips without loss.
type RecordMeta struct {
	Text       string
	PremiumINR *float64
	Extra      map[string]any
}

// MarshalJSON flattens Extra alongside the typed fields, matching the
// flat object layout of the metadata artifact.
func (m RecordMeta) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(m.Extra)+2)
	for k, v := range m.Extra {
		flat[k] = v
	}
	flat["text"] = m.Text
	if m.PremiumINR != nil {
		flat["premium_inr"] = *m.PremiumINR
	}
	return json.Marshal(flat)
}

// UnmarshalJSON extracts the typed fields and keeps the remaining keys
// in Extra.
func (m *RecordMeta) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	if text, ok := flat["text"].(string); ok {
		m.Text = text
	}
	delete(flat, "text")

	if premium, ok := flat["premium_inr"].(float64); ok {
		m.PremiumINR = &premium
	}
	delete(flat, "premium_inr")

	if len(flat) > 0 {
		m.Extra = flat
	} else {
		m.Extra = nil
	}
	return nil
}
