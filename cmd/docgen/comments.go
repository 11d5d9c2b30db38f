package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

type comments struct {
	typeDoc string
	fields  map[string]string // field name -> first sentence
	options map[string]string // WithXxx -> first sentence
}

// readComments parses the package source under root and collects the docs of
// the config struct, its fields and the package's With* options.
func readComments(root, pkgPath, structName string) comments {
	c := comments{
		fields:  make(map[string]string),
		options: make(map[string]string),
	}

	rel, ok := strings.CutPrefix(pkgPath, modulePath+"/")
	if !ok {
		return c
	}

	dir := filepath.Join(root, filepath.FromSlash(rel))
	matches, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return c
	}

	fset := token.NewFileSet()
	for _, path := range matches {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}

		file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", path, err)
			continue
		}

		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				c.collectStruct(d, structName)
			case *ast.FuncDecl:
				if d.Doc != nil && d.Recv == nil && strings.HasPrefix(d.Name.Name, "With") {
					c.options[d.Name.Name] = summary(d.Doc.Text(), d.Name.Name)
				}
			}
		}
	}

	return c
}

func (c *comments) collectStruct(decl *ast.GenDecl, name string) {
	if decl.Tok != token.TYPE {
		return
	}

	for _, spec := range decl.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok || ts.Name.Name != name {
			continue
		}

		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			continue
		}

		if decl.Doc != nil {
			c.typeDoc = summary(decl.Doc.Text(), name)
		}

		for _, field := range st.Fields.List {
			doc := field.Doc
			if doc == nil {
				doc = field.Comment
			}
			if doc == nil {
				continue
			}

			for _, ident := range field.Names {
				c.fields[ident.Name] = summary(doc.Text(), ident.Name)
			}
		}
	}
}

// summary returns the first sentence of a doc comment, without the leading
// identifier Go doc comments conventionally start with.
func summary(text, ident string) string {
	text = strings.Join(strings.Fields(text), " ")

	if end := strings.Index(text, ". "); end >= 0 {
		text = text[:end]
	}
	text = strings.TrimSuffix(text, ".")

	if rest, ok := strings.CutPrefix(text, ident+" "); ok {
		text = strings.TrimPrefix(strings.TrimPrefix(rest, "is "), "are ")
	}

	if text == "" {
		return ""
	}

	r := []rune(text)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
