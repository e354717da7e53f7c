// Copyright © 2024 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dcn

import (
	"regexp"
	"strings"
)

type tokenKind uint8

const (
	textToken tokenKind = iota
	openToken
	closeToken
	emptyToken
	prologToken
)

type token struct {
	kind  tokenKind
	name  string
	attrs map[string]string
	text  string
}

var (
	prologPattern = regexp.MustCompile(`^<\?[^>]*>`)
	tagPattern    = regexp.MustCompile(`^<(/?)([A-Za-z][A-Za-z0-9_-]*)((?:\s+[A-Za-z_][A-Za-z0-9_-]*\s*=\s*(?:"[^"]*"|'[^']*'))*)\s*(/?)>`)
	attrPattern   = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_-]*)\s*=\s*(?:"([^"]*)"|'([^']*)')`)

	// unanchored forms, used to refuse header values that would be
	// read back as markup
	tagLike    = regexp.MustCompile(strings.TrimPrefix(tagPattern.String(), "^"))
	prologLike = regexp.MustCompile(strings.TrimPrefix(prologPattern.String(), "^"))
)

// tokenize splits text into tags and the text between them. A '<' which
// does not start a well formed tag is kept as text.
func tokenize(text string) []token {
	var tokens []token
	var pending strings.Builder

	flush := func() {
		if pending.Len() > 0 {
			tokens = append(tokens, token{kind: textToken, text: pending.String()})
			pending.Reset()
		}
	}

	for len(text) > 0 {
		next := strings.IndexByte(text, '<')
		if next < 0 {
			pending.WriteString(text)
			break
		}

		pending.WriteString(text[:next])
		text = text[next:]

		if loc := prologPattern.FindStringIndex(text); loc != nil {
			flush()
			tokens = append(tokens, token{kind: prologToken, text: text[:loc[1]]})
			text = text[loc[1]:]
			continue
		}

		match := tagPattern.FindStringSubmatch(text)
		if match == nil {
			pending.WriteByte('<')
			text = text[1:]
			continue
		}

		flush()

		tok := token{kind: openToken, name: match[2], attrs: map[string]string{}}
		switch {
		case match[1] == "/":
			tok.kind = closeToken
		case match[4] == "/":
			tok.kind = emptyToken
		}

		for _, attr := range attrPattern.FindAllStringSubmatch(match[3], -1) {
			tok.attrs[attr[1]] = attr[2] + attr[3]
		}

		tokens = append(tokens, tok)
		text = text[len(match[0]):]
	}

	flush()
	return tokens
}

type element struct {
	name     string
	attrs    map[string]string
	children []*element
	text     strings.Builder
}

// parse builds the element tree of a token stream below a nameless root.
func parse(tokens []token) (*element, error) {
	root := &element{}
	stack := []*element{root}

	for _, tok := range tokens {
		top := stack[len(stack)-1]

		switch tok.kind {
		case prologToken:
			// version information is not needed to read a record

		case textToken:
			top.text.WriteString(tok.text)

		case openToken, emptyToken:
			child := &element{name: tok.name, attrs: tok.attrs}
			top.children = append(top.children, child)
			if tok.kind == openToken {
				stack = append(stack, child)
			}

		case closeToken:
			if top == root {
				return nil, &FormatError{Tag: tok.name, Msg: "closing tag without opening tag"}
			}

			if tok.name != top.name {
				return nil, &FormatError{Tag: tok.name, Msg: "mismatched closing tag, expected </" + top.name + ">"}
			}

			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 1 {
		return nil, &FormatError{Tag: stack[len(stack)-1].name, Msg: "unclosed tag"}
	}

	return root, nil
}

func (elem *element) child(name string) *element {
	for _, child := range elem.children {
		if child.name == name {
			return child
		}
	}

	return nil
}

// attributes merges the element's own attributes with those given as
// <attribute name="key">value</attribute> children.
func (elem *element) attributes() map[string]string {
	attrs := make(map[string]string, len(elem.attrs))
	for key, value := range elem.attrs {
		attrs[key] = value
	}

	for _, child := range elem.children {
		if key, found := child.attrs["name"]; child.name == "attribute" && found {
			attrs[key] = child.text.String()
		}
	}

	return attrs
}
