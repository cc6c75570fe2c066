package layout

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Class groups message layouts under one class id. Register is not safe
// for concurrent use with lookups; finish registering before sharing.
type Class struct {
	id       uint8
	name     string
	messages map[uint8]*Message
}

func NewClass(id int, name string, messages ...*Message) (*Class, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("%w: class name required", ErrInvalidName)
	}
	if id < 0 || id > 0xFF {
		return nil, fmt.Errorf("%w: class %s id %d", ErrInvalidID, name, id)
	}
	c := &Class{id: uint8(id), name: name, messages: make(map[uint8]*Message, len(messages))}
	if err := c.Register(messages...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Class) ID() uint8    { return c.id }
func (c *Class) Name() string { return c.name }

// Register adds messages, replacing any existing definition with the same
// id. Message names must stay unique across ids; on conflict nothing is
// registered.
func (c *Class) Register(messages ...*Message) error {
	next := maps.Clone(c.messages)
	for _, m := range messages {
		if m == nil {
			continue
		}
		next[m.id] = m
	}
	owners := make(map[string]uint8, len(next))
	for id, m := range next {
		if other, dup := owners[m.name]; dup {
			return fmt.Errorf("%w: class %s message %s at 0x%02x and 0x%02x",
				ErrDuplicateName, c.name, m.name, min(id, other), max(id, other))
		}
		owners[m.name] = id
	}
	c.messages = next
	return nil
}

func (c *Class) Has(id uint8) bool {
	_, ok := c.messages[id]
	return ok
}

func (c *Class) Get(id uint8) (*Message, error) {
	m, ok := c.messages[id]
	if !ok {
		return nil, fmt.Errorf("%w: class %s has no message 0x%02x", ErrNotRegistered, c.name, id)
	}
	return m, nil
}

// ByName finds a message by case-insensitive name.
func (c *Class) ByName(name string) (*Message, bool) {
	name = strings.ToUpper(name)
	for _, m := range c.messages {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}

// IDs lists registered message ids in ascending order.
func (c *Class) IDs() []uint8 {
	out := make([]uint8, 0, len(c.messages))
	for id := range c.messages {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Messages lists registered messages by ascending id.
func (c *Class) Messages() []*Message {
	ids := c.IDs()
	out := make([]*Message, len(ids))
	for i, id := range ids {
		out[i] = c.messages[id]
	}
	return out
}
