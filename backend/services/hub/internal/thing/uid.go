package thing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidUID is returned for malformed thing or channel identifiers.
var ErrInvalidUID = errors.New("thing: invalid uid")

// TypeUID identifies a thing type, e.g. "pegelonline:station".
type TypeUID struct {
	Binding string
	ID      string
}

func (t TypeUID) String() string {
	return t.Binding + ":" + t.ID
}

// UID identifies a thing: binding:type[:bridge...]:id.
type UID struct {
	Binding string
	Type    string
	Bridge  []string
	ID      string
}

// ParseUID parses "binding:type:id" or "binding:type:bridge:id".
func ParseUID(raw string) (UID, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 3 {
		return UID{}, fmt.Errorf("%w: %q", ErrInvalidUID, raw)
	}
	for _, p := range parts {
		if p == "" {
			return UID{}, fmt.Errorf("%w: %q", ErrInvalidUID, raw)
		}
	}
	uid := UID{Binding: parts[0], Type: parts[1], ID: parts[len(parts)-1]}
	if len(parts) > 3 {
		uid.Bridge = append([]string(nil), parts[2:len(parts)-1]...)
	}
	return uid, nil
}

// TypeUID returns the thing type.
func (u UID) TypeUID() TypeUID {
	return TypeUID{Binding: u.Binding, ID: u.Type}
}

func (u UID) String() string {
	segments := []string{u.Binding, u.Type}
	segments = append(segments, u.Bridge...)
	segments = append(segments, u.ID)
	return strings.Join(segments, ":")
}

// ChannelUID identifies a channel of a thing, optionally inside a group.
type ChannelUID struct {
	Thing string
	Group string
	ID    string
}

// NewChannelUID builds a grouped channel UID. Empty group yields an ungrouped channel.
func NewChannelUID(thingUID, group, id string) ChannelUID {
	return ChannelUID{Thing: thingUID, Group: group, ID: id}
}

// ParseChannelUID parses "<thing>:<group>#<id>" or "<thing>:<id>".
func ParseChannelUID(raw string) (ChannelUID, error) {
	idx := strings.LastIndex(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return ChannelUID{}, fmt.Errorf("%w: %q", ErrInvalidUID, raw)
	}
	thingPart, channelPart := raw[:idx], raw[idx+1:]
	if _, err := ParseUID(thingPart); err != nil {
		return ChannelUID{}, err
	}
	c := ChannelUID{Thing: thingPart, ID: channelPart}
	if group, id, ok := strings.Cut(channelPart, "#"); ok {
		if group == "" || id == "" {
			return ChannelUID{}, fmt.Errorf("%w: %q", ErrInvalidUID, raw)
		}
		c.Group, c.ID = group, id
	}
	return c, nil
}

// IDWithGroup renders "group#id" or "id".
func (c ChannelUID) IDWithGroup() string {
	if c.Group == "" {
		return c.ID
	}
	return c.Group + "#" + c.ID
}

func (c ChannelUID) String() string {
	return c.Thing + ":" + c.IDWithGroup()
}
