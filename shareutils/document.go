package shareutils

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

// catalogKeys is the document envelope declaring the share count and the
// reconstruction threshold.
type catalogKeys struct {
	N int `json:"n"`
	K int `json:"k"`
}

// catalogEntry is one share as uploaded: its value in the stated base.
type catalogEntry struct {
	Base  string `json:"base"`
	Value string `json:"value"`
}

// ParseShareSetDocument decodes a share catalog document into a validated
// ShareSet. The document format is a JSON object with a "keys" envelope
// and one entry per share, keyed by the share identifier:
//
//	{
//	  "keys": {"n": 4, "k": 3},
//	  "1": {"base": "10", "value": "3"},
//	  "2": {"base": "2", "value": "101"},
//	  ...
//	}
//
// Each share's x coordinate derives from its identifier and its y value
// from base-decoding "value". The declared n must match the number of
// entries. Shares come out ordered by ascending x, which makes the
// parsed form canonical for a given document.
func ParseShareSetDocument(data []byte) (interfaces.ShareSet, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return interfaces.ShareSet{}, fmt.Errorf("malformed share set document: %w", err)
	}

	keysRaw, ok := raw["keys"]
	if !ok {
		return interfaces.ShareSet{}, fmt.Errorf("share set document missing %q envelope", "keys")
	}
	var keys catalogKeys
	if err := json.Unmarshal(keysRaw, &keys); err != nil {
		return interfaces.ShareSet{}, fmt.Errorf("malformed %q envelope: %w", "keys", err)
	}
	delete(raw, "keys")

	if keys.N != len(raw) {
		return interfaces.ShareSet{}, fmt.Errorf("envelope declares %d shares, document carries %d", keys.N, len(raw))
	}

	shares := make([]interfaces.Share, 0, len(raw))
	for id, entryRaw := range raw {
		var entry catalogEntry
		if err := json.Unmarshal(entryRaw, &entry); err != nil {
			return interfaces.ShareSet{}, fmt.Errorf("malformed entry %q: %w", id, err)
		}
		x, err := DeriveX(id)
		if err != nil {
			return interfaces.ShareSet{}, err
		}
		base, err := strconv.Atoi(entry.Base)
		if err != nil {
			return interfaces.ShareSet{}, fmt.Errorf("entry %q: base %q is not an integer", id, entry.Base)
		}
		y, err := DecodeValue(entry.Value, base)
		if err != nil {
			return interfaces.ShareSet{}, fmt.Errorf("entry %q: %w", id, err)
		}
		shares = append(shares, interfaces.Share{ID: id, X: x, Y: y})
	}

	sort.Slice(shares, func(i, j int) bool { return shares[i].X.Cmp(shares[j].X) < 0 })

	set := interfaces.ShareSet{K: keys.K, Shares: shares}
	if err := set.Validate(); err != nil {
		return interfaces.ShareSet{}, err
	}
	return set, nil
}

// EncodeShareSet renders a share set in canonical catalog form: base-10
// values, map keys sorted by the JSON encoder, so equal sets produce
// byte-identical documents suitable for content addressing. Every share's
// identifier must equal its x coordinate in decimal, the same convention
// ParseShareSetDocument derives x by; re-parsing the output yields the
// input set.
func EncodeShareSet(set interfaces.ShareSet) ([]byte, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	doc := make(map[string]any, len(set.Shares)+1)
	doc["keys"] = catalogKeys{N: len(set.Shares), K: set.K}
	for _, share := range set.Shares {
		if share.ID != share.X.String() {
			return nil, fmt.Errorf("share %q cannot be encoded: identifier does not match x coordinate %s", share.ID, share.X)
		}
		doc[share.ID] = catalogEntry{Base: "10", Value: share.Y.String()}
	}
	return json.Marshal(doc)
}
