package rdfio

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/loomdb/loomdb/pkg/rdf"
)

const (
	rdfNS  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	xmlNS  = "http://www.w3.org/XML/1998/namespace"
	rdfAbt = rdfNS + "about"
	rdfRes = rdfNS + "resource"
	rdfID  = rdfNS + "ID"
	rdfND  = rdfNS + "nodeID"
	rdfDT  = rdfNS + "datatype"
	rdfDsc = rdfNS + "Description"
)

// parseRDFXML handles rdf:Description and typed-node elements,
// rdf:resource/rdf:about/rdf:nodeID attributes, and plain/datatype/lang
// literal properties, using the stdlib encoding/xml tokenizer.
// rdf:parseType="Collection" and reification shorthand are rejected.
func parseRDFXML(data []byte, baseIRI string) ([]*rdf.Triple, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var triples []*rdf.Triple
	blankCount := 0
	nextBlank := func() *rdf.BlankNode {
		blankCount++
		return rdf.NewBlankNode(fmt.Sprintf("rdfxml%d", blankCount))
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Space+start.Name.Local == rdfNS+"RDF" {
			continue
		}
		nodeTriples, err := parseNodeElement(dec, start, baseIRI, nextBlank)
		if err != nil {
			return nil, err
		}
		triples = append(triples, nodeTriples...)
	}
	return triples, nil
}

// parseNodeElement handles one node element (rdf:Description or a typed
// node) that has already been opened via its xml.StartElement.
func parseNodeElement(dec *xml.Decoder, start xml.StartElement, baseIRI string, nextBlank func() *rdf.BlankNode) ([]*rdf.Triple, error) {
	var triples []*rdf.Triple
	var subject rdf.Term

	for _, attr := range start.Attr {
		full := attr.Name.Space + attr.Name.Local
		switch full {
		case rdfAbt:
			subject = rdf.NewNamedNode(resolveIRI(baseIRI, attr.Value))
		case rdfID:
			subject = rdf.NewNamedNode(resolveIRI(baseIRI, "#"+attr.Value))
		case rdfND:
			subject = rdf.NewBlankNode(attr.Value)
		}
	}
	if subject == nil {
		subject = nextBlank()
	}

	if start.Name.Space+start.Name.Local != rdfDsc {
		triples = append(triples, rdf.NewTriple(subject, rdf.NewNamedNode(rdfNS+"type"), rdf.NewNamedNode(start.Name.Space+start.Name.Local)))
	}

	for _, attr := range start.Attr {
		full := attr.Name.Space + attr.Name.Local
		if full == rdfAbt || full == rdfID || full == rdfND || attr.Name.Space == "xmlns" {
			continue
		}
		triples = append(triples, rdf.NewTriple(subject, rdf.NewNamedNode(full), rdf.NewLiteral(attr.Value)))
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("rdfio: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			propTriples, err := parsePropertyElement(dec, el, subject, baseIRI, nextBlank)
			if err != nil {
				return nil, err
			}
			triples = append(triples, propTriples...)
		case xml.EndElement:
			if el.Name.Space+el.Name.Local == start.Name.Space+start.Name.Local {
				return triples, nil
			}
		}
	}
}

func parsePropertyElement(dec *xml.Decoder, start xml.StartElement, subject rdf.Term, baseIRI string, nextBlank func() *rdf.BlankNode) ([]*rdf.Triple, error) {
	predicate := rdf.NewNamedNode(start.Name.Space + start.Name.Local)

	for _, attr := range start.Attr {
		if attr.Name.Space+attr.Name.Local == rdfNS+"parseType" && attr.Value == "Collection" {
			return nil, fmt.Errorf("rdfio: rdf:parseType=\"Collection\" is not supported by the bulk loader")
		}
		if attr.Name.Space+attr.Name.Local == rdfID {
			return nil, fmt.Errorf("rdfio: rdf:ID on a property element (reification) is not supported by the bulk loader")
		}
	}

	var resource rdf.Term
	var datatype *rdf.NamedNode
	var lang string
	for _, attr := range start.Attr {
		full := attr.Name.Space + attr.Name.Local
		switch {
		case full == rdfRes:
			resource = rdf.NewNamedNode(resolveIRI(baseIRI, attr.Value))
		case full == rdfND:
			resource = rdf.NewBlankNode(attr.Value)
		case full == rdfDT:
			datatype = rdf.NewNamedNode(attr.Value)
		case attr.Name.Space == xmlNS && attr.Name.Local == "lang":
			lang = attr.Value
		}
	}

	if resource != nil {
		// Empty-element resource reference: consume through its EndElement.
		for {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			if end, ok := tok.(xml.EndElement); ok && end.Name.Space+end.Name.Local == start.Name.Space+start.Name.Local {
				break
			}
		}
		return []*rdf.Triple{rdf.NewTriple(subject, predicate, resource)}, nil
	}

	var textContent bytes.Buffer
	var triples []*rdf.Triple
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.CharData:
			textContent.Write(el)
		case xml.StartElement:
			// A nested element means this property's value is itself a
			// node element (blank or typed); parse it and link via this
			// predicate.
			var nested rdf.Term
			nestedStart := el
			for _, attr := range el.Attr {
				switch attr.Name.Space + attr.Name.Local {
				case rdfAbt:
					nested = rdf.NewNamedNode(resolveIRI(baseIRI, attr.Value))
				case rdfID:
					nested = rdf.NewNamedNode(resolveIRI(baseIRI, "#"+attr.Value))
				case rdfND:
					nested = rdf.NewBlankNode(attr.Value)
				}
			}
			if nested == nil {
				nested = nextBlank()
				nestedStart.Attr = append(el.Attr[:len(el.Attr):len(el.Attr)], xml.Attr{Name: xml.Name{Space: rdfNS, Local: "nodeID"}, Value: nested.(*rdf.BlankNode).ID})
			}
			nestedTriples, err := parseNodeElement(dec, nestedStart, baseIRI, nextBlank)
			if err != nil {
				return nil, err
			}
			triples = append(triples, nestedTriples...)
			triples = append(triples, rdf.NewTriple(subject, predicate, nested))
			return triples, nil
		case xml.EndElement:
			if el.Name.Space+el.Name.Local == start.Name.Space+start.Name.Local {
				var literal *rdf.Literal
				switch {
				case datatype != nil:
					literal = rdf.NewLiteralWithDatatype(textContent.String(), datatype)
				case lang != "":
					literal = rdf.NewLiteralWithLanguage(textContent.String(), lang)
				default:
					literal = rdf.NewLiteral(textContent.String())
				}
				return append(triples, rdf.NewTriple(subject, predicate, literal)), nil
			}
		}
	}
}

func resolveIRI(baseIRI, ref string) string {
	if baseIRI == "" || len(ref) == 0 || ref[0] != '#' {
		return ref
	}
	return baseIRI + ref
}
