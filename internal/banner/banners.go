package banner

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Banners maps sheet name to BannerRecord and keeps insertion order, which is
// workbook sheet order. It encodes as a JSON object with keys in that order.
type Banners struct {
	names  []string
	byName map[string]*BannerRecord
}

func (b *Banners) add(rec *BannerRecord) {
	if b.byName == nil {
		b.byName = make(map[string]*BannerRecord)
	}
	if _, ok := b.byName[rec.SheetName]; !ok {
		b.names = append(b.names, rec.SheetName)
	}
	b.byName[rec.SheetName] = rec
}

// Len returns the number of banners.
func (b Banners) Len() int { return len(b.names) }

// Names returns sheet names in insertion order.
func (b Banners) Names() []string {
	return append([]string(nil), b.names...)
}

// Get returns the banner for sheet.
func (b Banners) Get(sheet string) (*BannerRecord, bool) {
	rec, ok := b.byName[sheet]
	return rec, ok
}

// First returns the first banner, or nil when there are none.
func (b Banners) First() *BannerRecord {
	if len(b.names) == 0 {
		return nil
	}
	return b.byName[b.names[0]]
}

// All returns banners in insertion order.
func (b Banners) All() []*BannerRecord {
	out := make([]*BannerRecord, 0, len(b.names))
	for _, name := range b.names {
		out = append(out, b.byName[name])
	}
	return out
}

// MarshalJSON encodes the banners as an object keyed by sheet name.
func (b Banners) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range b.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(b.byName[name])
		if err != nil {
			return nil, fmt.Errorf("banner %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keyed by sheet name, keeping key order.
func (b *Banners) UnmarshalJSON(data []byte) error {
	*b = Banners{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("banners: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("banners: expected sheet name, got %v", tok)
		}
		var rec BannerRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("banner %q: %w", name, err)
		}
		// The key is authoritative for lookup.
		rec.SheetName = name
		b.add(&rec)
	}
	_, err = dec.Token()
	return err
}
