package tree

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedTree is returned (wrapped) when content tree cannot be decoded.
var ErrMalformedTree = errors.New("malformed content tree")

// Decode reads single JSON document keeping key order and number spelling.
func Decode(r io.Reader) (*Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	root, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTree, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after document", ErrMalformedTree)
	}
	return root, nil
}

func decodeValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			n := NewMap()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				// duplicate key: last value wins, first position stays
				n.set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := NewList()
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				n.Items = append(n.Items, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", v)
		}
	case string:
		return NewString(v), nil
	case json.Number:
		return NewLiteral(v.String()), nil
	case bool:
		if v {
			return NewLiteral("true"), nil
		}
		return NewLiteral("false"), nil
	case nil:
		return NewLiteral("null"), nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

const indent = "  "

// Encode writes tree as indented JSON. Non-ASCII characters and HTML
// sensitive symbols are written literally.
func Encode(w io.Writer, n *Node) error {
	bw := bufio.NewWriter(w)
	if err := encodeValue(bw, n, 0); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}

// Marshal returns indented JSON representation of the tree.
func Marshal(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(w *bufio.Writer, n *Node, depth int) error {
	if n == nil {
		_, err := w.WriteString("null")
		return err
	}

	switch n.Kind {
	case String:
		return encodeString(w, n.Str)
	case Literal:
		_, err := w.WriteString(n.Raw)
		return err
	case List:
		if len(n.Items) == 0 {
			_, err := w.WriteString("[]")
			return err
		}
		w.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				w.WriteByte(',')
			}
			newline(w, depth+1)
			if err := encodeValue(w, item, depth+1); err != nil {
				return err
			}
		}
		newline(w, depth)
		return w.WriteByte(']')
	case Map:
		if len(n.Fields) == 0 {
			_, err := w.WriteString("{}")
			return err
		}
		w.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				w.WriteByte(',')
			}
			newline(w, depth+1)
			if err := encodeString(w, f.Key); err != nil {
				return err
			}
			w.WriteString(": ")
			if err := encodeValue(w, f.Value, depth+1); err != nil {
				return err
			}
		}
		newline(w, depth)
		return w.WriteByte('}')
	default:
		return fmt.Errorf("unable to encode node of kind %s", n.Kind)
	}
}

func newline(w *bufio.Writer, depth int) {
	w.WriteByte('\n')
	w.WriteString(strings.Repeat(indent, depth))
}

func encodeString(w *bufio.Writer, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	_, err := w.Write(unescapeSeparators(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})))
	return err
}

// unescapeSeparators turns \u2028 and \u2029 escapes produced by encoding/json
// back into literal characters. Escape sequences are scanned pairwise, so
// escaped backslash followed by "u2028" text is left alone.
func unescapeSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if seq := data[i+1:]; len(seq) >= 5 && seq[0] == 'u' && (string(seq[1:5]) == "2028" || string(seq[1:5]) == "2029") {
			if seq[4] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}
