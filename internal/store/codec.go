package store

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/snapshot.schema.json
var snapshotSchema string

const snapshotSchemaURL = "https://pmgame.local/schemas/snapshot.schema.json"

// zstdMagic prefixes every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Codec validates snapshot documents against the snapshot schema and
// optionally compresses them with zstd. Decode accepts both compressed and
// plain blobs so the compress setting can change between runs.
type Codec struct {
	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
	schema   *jsonschema.Schema
}

// NewCodec builds a codec.
func NewCodec(compress bool) (*Codec, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(snapshotSchemaURL, bytes.NewReader([]byte(snapshotSchema))); err != nil {
		return nil, fmt.Errorf("codec: load schema: %w", err)
	}
	schema, err := compiler.Compile(snapshotSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("codec: compile schema: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("codec: zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("codec: zstd decoder: %w", err)
	}
	return &Codec{compress: compress, encoder: encoder, decoder: decoder, schema: schema}, nil
}

// Encode validates a JSON snapshot document and returns the stored form.
func (c *Codec) Encode(doc []byte) ([]byte, error) {
	if err := c.Validate(doc); err != nil {
		return nil, err
	}
	if !c.compress {
		return append([]byte(nil), doc...), nil
	}
	return c.encoder.EncodeAll(doc, make([]byte, 0, len(doc)/2)), nil
}

// Decode turns a stored blob back into a validated JSON document.
func (c *Codec) Decode(blob []byte) ([]byte, error) {
	doc := blob
	if bytes.HasPrefix(blob, zstdMagic) {
		var err error
		doc, err = c.decoder.DecodeAll(blob, nil)
		if err != nil {
			return nil, fmt.Errorf("codec: decompress: %w", err)
		}
	}
	if err := c.Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks doc against the snapshot schema.
func (c *Codec) Validate(doc []byte) error {
	var v interface{}
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("codec: invalid json: %w", err)
	}
	if err := c.schema.Validate(v); err != nil {
		return fmt.Errorf("codec: snapshot does not match schema: %w", err)
	}
	return nil
}

// Close releases the zstd encoder and decoder.
func (c *Codec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
