// Package openmsxml reads and writes the OpenMS XML formats featureXML,
// consensusXML and trafoXML.
package openmsxml

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/net/html/charset"
)

var (
	// ErrUnknownReference means an element refers to an id that is not
	// declared in the file
	ErrUnknownReference = errors.New("OpenMS XML: unknown reference")
	// ErrUnexpectedRoot means the document root is not the expected element
	ErrUnexpectedRoot = errors.New("OpenMS XML: unexpected root element")
)

// decodeFile decodes the root element of the XML file at path into v
func decodeFile(path string, v any, root string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := decode(f, v, root); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func decode(r io.Reader, v any, root string) error {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	for {
		t, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("%w: %s not found", ErrUnexpectedRoot, root)
			}
			return err
		}
		if t, ok := t.(xml.StartElement); ok {
			if t.Name.Local != root {
				return fmt.Errorf("%w: %s, should be %s", ErrUnexpectedRoot, t.Name.Local, root)
			}
			return d.DecodeElement(v, &t)
		}
	}
}

// encodeFile writes v as an indented XML document to path
func encodeFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := encode(w, v); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encode(w io.Writer, v any) error {
	if _, err := io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
