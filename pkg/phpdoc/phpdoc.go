// Package phpdoc parses /** ... */ documentation comments into the tag
// structure the readers consume.
//
// Recognized tags: @param, @return, @var, @property (-read/-write variants),
// @method and @global. Types in tags are `|`-unions of atoms with an optional
// `[]` array suffix; they are kept as written here and resolved against the
// surrounding name resolver at tag-application time.
package phpdoc

import (
	"strings"
)

// Param is one @param tag.
type Param struct {
	Type        string
	Name        string
	Description string
}

// Return is the @return tag.
type Return struct {
	Type        string
	Description string
}

// Var is one @var tag. Name is optional in the grammar.
type Var struct {
	Type        string
	Name        string
	Description string
}

// Property is one @property, @property-read or @property-write tag.
type Property struct {
	Type        string
	Name        string
	Description string
	ReadOnly    bool
	WriteOnly   bool
}

// MethodParam is a typed parameter inside an @method tag signature.
type MethodParam struct {
	Type string
	Name string
}

// Method is one @method tag.
type Method struct {
	Static      bool
	ReturnType  string
	Name        string
	Params      []MethodParam
	Description string
}

// Global is one @global tag.
type Global struct {
	Type        string
	Name        string
	Description string
}

// Block is the parsed form of one doc-comment.
type Block struct {
	Summary    string
	Params     []Param
	Returns    *Return
	Vars       []Var
	Properties []Property
	Methods    []Method
	Globals    []Global
}

// ParamTag returns the @param entry for name, or nil.
func (b *Block) ParamTag(name string) *Param {
	for i := range b.Params {
		if b.Params[i].Name == name {
			return &b.Params[i]
		}
	}
	return nil
}

// VarTag returns the @var entry for name; an unnamed @var matches anything.
func (b *Block) VarTag(name string) *Var {
	for i := range b.Vars {
		if b.Vars[i].Name == name || b.Vars[i].Name == "" {
			return &b.Vars[i]
		}
	}
	return nil
}

// GlobalTag returns the @global entry for name, or nil.
func (b *Block) GlobalTag(name string) *Global {
	for i := range b.Globals {
		if b.Globals[i].Name == name {
			return &b.Globals[i]
		}
	}
	return nil
}

// IsDocComment reports whether text is a /** ... */ comment.
func IsDocComment(text string) bool {
	return strings.HasPrefix(text, "/**")
}

// Parse parses a doc-comment. Returns nil when text is not a doc-comment.
func Parse(text string) *Block {
	if !IsDocComment(text) {
		return nil
	}
	body := strings.TrimSuffix(strings.TrimPrefix(text, "/**"), "*/")

	block := &Block{}
	var summary []string
	inTags := false

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "@") {
			inTags = true
			block.parseTag(line)
			continue
		}
		if !inTags {
			summary = append(summary, line)
		}
	}
	block.Summary = strings.Join(summary, "\n")
	return block
}

func (b *Block) parseTag(line string) {
	tag, rest := splitWord(line)
	switch tag {
	case "@param":
		typ, rest := splitWord(rest)
		name, desc := splitWord(rest)
		if strings.HasPrefix(typ, "$") {
			// Untyped form: @param $name desc
			name, desc = typ, strings.TrimSpace(strings.Join([]string{name, desc}, " "))
			typ = ""
		}
		if name != "" && !strings.HasPrefix(name, "$") {
			return
		}
		b.Params = append(b.Params, Param{Type: typ, Name: name, Description: desc})
	case "@return":
		typ, desc := splitWord(rest)
		b.Returns = &Return{Type: typ, Description: desc}
	case "@var":
		typ, rest := splitWord(rest)
		name, desc := "", rest
		if strings.HasPrefix(rest, "$") {
			name, desc = splitWord(rest)
		}
		b.Vars = append(b.Vars, Var{Type: typ, Name: name, Description: desc})
	case "@property", "@property-read", "@property-write":
		typ, rest := splitWord(rest)
		name, desc := splitWord(rest)
		if !strings.HasPrefix(name, "$") {
			return
		}
		b.Properties = append(b.Properties, Property{
			Type:        typ,
			Name:        name,
			Description: desc,
			ReadOnly:    tag == "@property-read",
			WriteOnly:   tag == "@property-write",
		})
	case "@method":
		if m := parseMethodTag(rest); m != nil {
			b.Methods = append(b.Methods, *m)
		}
	case "@global":
		typ, rest := splitWord(rest)
		name, desc := splitWord(rest)
		if !strings.HasPrefix(name, "$") {
			return
		}
		b.Globals = append(b.Globals, Global{Type: typ, Name: name, Description: desc})
	}
}

// parseMethodTag parses "@method [static] [returnType] name(params) desc".
func parseMethodTag(rest string) *Method {
	m := &Method{}
	word, tail := splitWord(rest)
	if word == "static" {
		m.Static = true
		word, tail = splitWord(tail)
	}
	if word == "" {
		return nil
	}
	if !strings.Contains(word, "(") {
		// A word without a parameter list is the return type.
		m.ReturnType = word
		word, tail = splitWord(tail)
	}
	open := strings.Index(word, "(")
	if open < 0 {
		// Signature without parentheses: treat the word as the name.
		m.Name = word
		m.Description = strings.TrimSpace(tail)
		return m
	}
	m.Name = word[:open]
	sig := word[open:]
	// The parameter list may contain spaces; extend until the closing paren.
	for !strings.Contains(sig, ")") && tail != "" {
		word, tail = splitWord(tail)
		sig += " " + word
	}
	if close := strings.Index(sig, ")"); close >= 0 {
		m.Params = parseMethodParams(sig[1:close])
		m.Description = strings.TrimSpace(sig[close+1:] + " " + tail)
	}
	if m.Name == "" {
		return nil
	}
	return m
}

func parseMethodParams(list string) []MethodParam {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil
	}
	var out []MethodParam
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		typ, name := "", part
		if i := strings.IndexByte(part, ' '); i >= 0 {
			typ, name = part[:i], strings.TrimSpace(part[i+1:])
		}
		// Defaults in the tag grammar are dropped, only type and name kept.
		if i := strings.IndexByte(name, '='); i >= 0 {
			name = strings.TrimSpace(name[:i])
		}
		out = append(out, MethodParam{Type: typ, Name: name})
	}
	return out
}

// splitWord splits off the first whitespace-delimited word.
func splitWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}
