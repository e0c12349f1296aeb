package analysiscache

import (
	"bytes"
	"encoding/gob"
)

// PutValue gob-encodes value and stores it under key.
func (c *Cache) PutValue(key string, value interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return err
	}
	return c.Put(key, buf.Bytes())
}

// GetValue fetches the bytes stored under key and gob-decodes them into
// dest, which must be a pointer.
func (c *Cache) GetValue(key string, dest interface{}) error {
	raw, err := c.Get(key)
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(raw)).Decode(dest)
}
