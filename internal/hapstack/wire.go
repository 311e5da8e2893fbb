package hapstack

import (
	"fmt"
	"strconv"
	"strings"
)

// AccessoriesResponse is the body of GET /accessories
type AccessoriesResponse struct {
	Accessories []AccessoryJSON `json:"accessories"`
}

// AccessoryJSON is one accessory in the database
type AccessoryJSON struct {
	AID      uint64        `json:"aid"`
	Services []ServiceJSON `json:"services"`
}

// ServiceJSON is one service in the database
type ServiceJSON struct {
	IID             uint64               `json:"iid"`
	Type            string               `json:"type"`
	Characteristics []CharacteristicJSON `json:"characteristics"`
}

// CharacteristicJSON is one characteristic in the database
type CharacteristicJSON struct {
	IID    uint64   `json:"iid"`
	Type   string   `json:"type"`
	Format string   `json:"format"`
	Perms  []string `json:"perms"`
	Value  any      `json:"value,omitempty"`
}

// CharacteristicsBody is the body of PUT /characteristics, GET
// /characteristics responses, 207 responses and events
type CharacteristicsBody struct {
	Characteristics []CharacteristicValue `json:"characteristics"`
}

// CharacteristicValue addresses one characteristic by aid and iid
type CharacteristicValue struct {
	AID    uint64 `json:"aid"`
	IID    uint64 `json:"iid"`
	Value  any    `json:"value,omitempty"`
	Status *int   `json:"status,omitempty"`
}

// CharacteristicID is an aid.iid pair
type CharacteristicID struct {
	AID uint64
	IID uint64
}

func (id CharacteristicID) String() string {
	return fmt.Sprintf("%d.%d", id.AID, id.IID)
}

// ParseIDs parses the id query parameter, e.g. "1.9,1.10"
func ParseIDs(s string) ([]CharacteristicID, error) {
	if s == "" {
		return nil, fmt.Errorf("missing id parameter")
	}

	var ids []CharacteristicID
	for _, part := range strings.Split(s, ",") {
		aidStr, iidStr, ok := strings.Cut(strings.TrimSpace(part), ".")
		if !ok {
			return nil, fmt.Errorf("invalid characteristic id %q", part)
		}
		aid, err := strconv.ParseUint(aidStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid aid in %q: %w", part, err)
		}
		iid, err := strconv.ParseUint(iidStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid iid in %q: %w", part, err)
		}
		ids = append(ids, CharacteristicID{AID: aid, IID: iid})
	}
	return ids, nil
}

func statusPtr(s int) *int { return &s }
