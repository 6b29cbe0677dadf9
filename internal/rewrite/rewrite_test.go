package rewrite_test

import (
	"errors"
	"strings"
	"testing"

	"bennypowers.dev/templatetag/internal/glimmer"
	"bennypowers.dev/templatetag/internal/jsgen"
	"bennypowers.dev/templatetag/internal/parser/js"
	"bennypowers.dev/templatetag/internal/rewrite"
	"bennypowers.dev/templatetag/transform/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, source string, static ...types.StaticImportConfig) *js.Document {
	t.Helper()
	doc, err := js.Parse(source, js.Config{FilePath: "app/hello.gjs", StaticImports: static})
	require.NoError(t, err)
	return doc
}

func explicit() rewrite.Options {
	return rewrite.Options{RelativePath: "app/hello.gjs", Explicit: true}
}

func TestFullTopLevel(t *testing.T) {
	source := "const name = 'world';\n<template>Hi {{name}}</template>\n"
	ctx := rewrite.NewContext(parse(t, source), explicit(), false)

	result, err := rewrite.Full(ctx)
	require.NoError(t, err)

	want := "import { template } from \"@ember/template-compiler\";\n" +
		"const name = 'world';\n" +
		"export default template(`Hi {{name}}`, {\n" +
		"  moduleName: \"app/hello.gjs\",\n" +
		"  scope: instance => ({\n" +
		"    name\n" +
		"  })\n" +
		"});\n"
	assert.Equal(t, want, result.Output)
	assert.Equal(t, "template", ctx.SpecifierName())
	require.Len(t, ctx.Calls, 1)
}

func TestFullTopLevelSemicolon(t *testing.T) {
	source := "<template>x</template>;\n"
	ctx := rewrite.NewContext(parse(t, source), explicit(), false)

	result, err := rewrite.Full(ctx)
	require.NoError(t, err)
	assert.Contains(t, result.Output, "export default template(`x`, {")
	assert.True(t, strings.HasSuffix(result.Output, "});\n"), result.Output)
	assert.NotContains(t, result.Output, ";;")
}

func TestFullAfterKeyword(t *testing.T) {
	source := "function f() { return<template>x</template>; }\n"
	ctx := rewrite.NewContext(parse(t, source), explicit(), false)

	result, err := rewrite.Full(ctx)
	require.NoError(t, err)
	assert.Contains(t, result.Output, "{ return template(`x`, {")
}

func TestFullClassBody(t *testing.T) {
	source := "import Component from '@glimmer/component';\n" +
		"export default class Hello extends Component {\n" +
		"  <template>Hi {{this.name}}</template>\n" +
		"}\n"
	ctx := rewrite.NewContext(parse(t, source), explicit(), false)

	result, err := rewrite.Full(ctx)
	require.NoError(t, err)

	want := "import { template } from \"@ember/template-compiler\";\n" +
		"import Component from '@glimmer/component';\n" +
		"export default class Hello extends Component {\n" +
		"  static {\n" +
		"    template(`Hi {{this.name}}`, {\n" +
		"      component: this,\n" +
		"      moduleName: \"app/hello.gjs\",\n" +
		"      scope: instance => ({})\n" +
		"    });\n" +
		"  }\n" +
		"}\n"
	assert.Equal(t, want, result.Output)
	assert.NotContains(t, result.Output, "export default template")
}

func TestFullSingleImport(t *testing.T) {
	source := "export const A = <template>a</template>;\nexport const B = <template>b</template>;\n"
	ctx := rewrite.NewContext(parse(t, source), explicit(), false)

	result, err := rewrite.Full(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(result.Output, "import { template }"))
	assert.Contains(t, result.Output, "export const A = template(`a`, {")
	assert.Contains(t, result.Output, "export const B = template(`b`, {")
	assert.Len(t, ctx.Calls, 2)
}

func TestFullCollisionRename(t *testing.T) {
	t.Run("outer binding", func(t *testing.T) {
		source := "import { template } from './local-helpers';\n" +
			"export const A = <template>a</template>;\n" +
			"export const B = <template>b</template>;\n"
		ctx := rewrite.NewContext(parse(t, source), explicit(), false)

		result, err := rewrite.Full(ctx)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(result.Output, "import { template as template1 } from \"@ember/template-compiler\";\n"))
		assert.Contains(t, result.Output, "A = template1(`a`")
		assert.Contains(t, result.Output, "B = template1(`b`")
	})

	t.Run("later template forces a rename", func(t *testing.T) {
		source := "export const A = <template>one</template>;\n" +
			"function f() {\n" +
			"  const template = 1;\n" +
			"  return <template>two</template>;\n" +
			"}\n"
		ctx := rewrite.NewContext(parse(t, source), explicit(), false)

		result, err := rewrite.Full(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, strings.Count(result.Output, "import {"))
		assert.Contains(t, result.Output, "import { template as template1 }")
		assert.Contains(t, result.Output, "template1(`one`")
		assert.Contains(t, result.Output, "template1(`two`")
		assert.Contains(t, result.Output, "const template = 1;")
	})

	t.Run("var in a nested block", func(t *testing.T) {
		source := "function f(x) {\n" +
			"  if (x) { var template = 1; }\n" +
			"  return <template>a</template>;\n" +
			"}\n"
		ctx := rewrite.NewContext(parse(t, source), explicit(), false)

		result, err := rewrite.Full(ctx)
		require.NoError(t, err)

		assert.Contains(t, result.Output, "import { template as template1 }")
		assert.Contains(t, result.Output, "return template1(`a`")
	})
}

func TestFullInsertionPoint(t *testing.T) {
	source := "#!/usr/bin/env node\n'use strict';\nexport const A = <template>a</template>;\n"
	ctx := rewrite.NewContext(parse(t, source), explicit(), false)

	result, err := rewrite.Full(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Output,
		"#!/usr/bin/env node\n'use strict';\nimport { template } from \"@ember/template-compiler\";\nexport const A ="))
}

func TestFullChunksCoverOutput(t *testing.T) {
	source := "const a = 1;\nexport const A = <template>a</template>;\nconst b = 2;\n"
	ctx := rewrite.NewContext(parse(t, source), explicit(), false)

	result, err := rewrite.Full(ctx)
	require.NoError(t, err)

	end := 0
	for _, c := range result.Chunks {
		assert.Equal(t, end, c.Generated.Start(), "chunks are contiguous")
		if c.Verbatim {
			assert.Equal(t,
				source[c.Original:c.Original+c.Generated.Len()],
				result.Output[c.Generated.Start():c.Generated.End()])
		}
		end = c.Generated.End()
	}
	assert.Equal(t, len(result.Output), end)
}

func TestImplicitMode(t *testing.T) {
	source := "export const A = <template>{{x}}</template>;\n"
	ctx := rewrite.NewContext(parse(t, source), rewrite.Options{RelativePath: "a.gjs"}, false)

	result, err := rewrite.Full(ctx)
	require.NoError(t, err)
	assert.Contains(t, result.Output, "template(`{{x}}`, {\n"+
		"  moduleName: \"a.gjs\",\n"+
		"  eval() {\n"+
		"    return eval(arguments[0]);\n"+
		"  }\n"+
		"})")
	assert.NotContains(t, result.Output, "scope:")
}

func TestScopeElementNames(t *testing.T) {
	source := "import foo from './foo';\nexport const A = <template><foo /><bar /><Baz />{{qux.y}}</template>;\n"
	ctx := rewrite.NewContext(parse(t, source), explicit(), false)

	result, err := rewrite.Full(ctx)
	require.NoError(t, err)
	assert.Contains(t, result.Output, "scope: instance => ({\n    Baz,\n    qux,\n    foo\n  })")
	assert.NotContains(t, result.Output, "    bar")
}

func TestShaping(t *testing.T) {
	var minified []string
	opts := explicit()
	opts.Minifier = func(s string) string {
		minified = append(minified, s)
		return glimmer.Minify(s)
	}

	source := "export const A = <template trim minify>\n  <p>  hi  </p>\n</template>;\n" +
		"export const B = <template minify> x  y </template>;\n" +
		"export const C = <template trim>  z  </template>;\n"
	ctx := rewrite.NewContext(parse(t, source), opts, false)

	result, err := rewrite.Full(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"<p>  hi  </p>", " x  y "}, minified, "trim runs before minify")
	assert.Contains(t, result.Output, "A = template(`<p> hi </p>`")
	assert.Contains(t, result.Output, "B = template(` x y `")
	assert.Contains(t, result.Output, "C = template(`z`")
}

func TestLiteralMatch(t *testing.T) {
	source := "import { hbs } from 'ember-cli-htmlbars';\nexport const A = hbs`<b>{{x}}</b>`;\n"
	doc := parse(t, source, types.StaticImportConfig{ImportPath: "ember-cli-htmlbars", ImportIdentifier: "hbs"})
	ctx := rewrite.NewContext(doc, explicit(), false)

	result, err := rewrite.Full(ctx)
	require.NoError(t, err)
	assert.Contains(t, result.Output, "export const A = template(\"<b>{{x}}</b>\", {")
}

func TestLiteralMatchCooksEscapes(t *testing.T) {
	source := "import { hbs } from 'ember-cli-htmlbars';\nexport const A = hbs`a\\`b \\u00e9`;\n"
	doc := parse(t, source, types.StaticImportConfig{ImportPath: "ember-cli-htmlbars", ImportIdentifier: "hbs"})
	ctx := rewrite.NewContext(doc, explicit(), false)

	result, err := rewrite.Full(ctx)
	require.NoError(t, err)
	assert.Contains(t, result.Output, "export const A = template(\"a`b é\", {")
}

func TestBuildErrors(t *testing.T) {
	t.Run("unsupported placement", func(t *testing.T) {
		source := "const obj = {\n  <template>x</template>\n};\n"
		ctx := rewrite.NewContext(parse(t, source), explicit(), false)

		_, err := rewrite.Full(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrUnsupportedPlacement)

		var placement *types.UnsupportedPlacementError
		require.True(t, errors.As(err, &placement))
		assert.Equal(t, "app/hello.gjs", placement.FilePath)
		assert.Equal(t, types.Range{16, 38}, placement.Range)
	})

	t.Run("scope resolution", func(t *testing.T) {
		source := "export const A = <template>{{#if a}}never closed</template>;\n"
		ctx := rewrite.NewContext(parse(t, source), explicit(), false)

		_, err := rewrite.Full(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrScopeResolution)
		var syntaxErr *glimmer.SyntaxError
		assert.True(t, errors.As(err, &syntaxErr), "the resolver's error stays reachable")
	})

	t.Run("implicit mode skips the resolver", func(t *testing.T) {
		source := "export const A = <template>{{#if a}}never closed</template>;\n"
		ctx := rewrite.NewContext(parse(t, source), rewrite.Options{}, false)

		_, err := rewrite.Full(ctx)
		assert.NoError(t, err)
	})
}

func TestLint(t *testing.T) {
	source := "const a = <template>A</template>;\nconst b = <template>{{x}}</template>;\n"
	ctx := rewrite.NewContext(parse(t, source), explicit(), true)

	result, err := rewrite.Lint(ctx)
	require.NoError(t, err)

	c1 := "template(`A`,{moduleName:\"app/hello.gjs\",scope:instance=>({})})"
	c2 := "template(`{{x}}`,{moduleName:\"app/hello.gjs\",scope:instance=>({x})})"
	assert.Equal(t, "const a = "+c1+";\nconst b = "+c2+";\n", result.Output)
	assert.Nil(t, ctx.Import, "lint mode never inserts an import")

	require.Len(t, result.Replacements, 2)
	first, second := result.Replacements[0], result.Replacements[1]
	assert.Equal(t, types.Range{10, 32}, first.OriginalRange)
	assert.Equal(t, types.Range{20, 21}, first.OriginalContentRange)
	assert.Equal(t, types.Location{Line: 0, Column: 10}, first.OriginalStart)
	assert.Equal(t, types.Range{10, 10 + len(c1)}, first.ReplacedRange)

	secondStart := len("const a = " + c1 + ";\nconst b = ")
	assert.Equal(t, types.Range{secondStart, secondStart + len(c2)}, second.ReplacedRange)
	assert.Equal(t, types.Location{Line: 1, Column: 10}, second.OriginalStart)

	for _, r := range result.Replacements {
		code := result.Output[r.ReplacedRange.Start():r.ReplacedRange.End()]
		assert.True(t, strings.HasPrefix(code, "template(`"), code)
	}
}

func TestLintAfterKeyword(t *testing.T) {
	source := "function f() { return<template>x</template>; }\nconst b = <template>y</template>;\n"
	ctx := rewrite.NewContext(parse(t, source), explicit(), true)

	result, err := rewrite.Lint(ctx)
	require.NoError(t, err)

	c1 := "template(`x`,{moduleName:\"app/hello.gjs\",scope:instance=>({})})"
	c2 := "template(`y`,{moduleName:\"app/hello.gjs\",scope:instance=>({})})"
	assert.Equal(t, "function f() { return "+c1+"; }\nconst b = "+c2+";\n", result.Output)

	require.Len(t, result.Replacements, 2)
	assert.Equal(t, types.Range{21, 43}, result.Replacements[0].OriginalRange)
	assert.Equal(t, types.Range{22, 22 + len(c1)}, result.Replacements[0].ReplacedRange)
	for _, r := range result.Replacements {
		code := result.Output[r.ReplacedRange.Start():r.ReplacedRange.End()]
		assert.True(t, strings.HasPrefix(code, "template(`"), code)
	}
}

func TestLintPlacement(t *testing.T) {
	source := "<template>top</template>\nclass A {\n  <template>cls</template>\n}\n"
	ctx := rewrite.NewContext(parse(t, source), rewrite.Options{RelativePath: "a.gjs"}, true)

	result, err := rewrite.Lint(ctx)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Output, "template(`top`,{moduleName:\"a.gjs\",eval(){return eval(arguments[0]);}})\n"),
		"top-level templates are not exported in lint mode")
	assert.Contains(t, result.Output, "  static{template(`cls`,{component:this,moduleName:\"a.gjs\",eval(){return eval(arguments[0]);}});}\n}")
}

func TestLintLocality(t *testing.T) {
	source := "let x = 1;\nconst a = <template trim>  A  </template>, b = 2;\n" +
		"class C {\n  <template>{{x}}\n  multi\n  line</template>\n}\nconst z = <template></template>;\n"
	ctx := rewrite.NewContext(parse(t, source), explicit(), true)

	result, err := rewrite.Lint(ctx)
	require.NoError(t, err)
	require.Len(t, result.Replacements, 3)

	// unreplaced spans of the output equal the matching spans of the input
	inPos, outPos := 0, 0
	total := 0
	for _, r := range result.Replacements {
		gap := r.OriginalRange.Start() - inPos
		assert.Equal(t, source[inPos:r.OriginalRange.Start()], result.Output[outPos:outPos+gap])
		assert.Equal(t, outPos+gap, r.ReplacedRange.Start())
		total += gap + r.ReplacedRange.Len()
		inPos, outPos = r.OriginalRange.End(), r.ReplacedRange.End()
	}
	assert.Equal(t, source[inPos:], result.Output[outPos:])
	total += len(source) - inPos
	assert.Equal(t, len(result.Output), total)
}

func TestLintPredictsExistingImport(t *testing.T) {
	source := "import { template } from '@ember/template-compiler';\nconst a = <template>A</template>;\n"
	ctx := rewrite.NewContext(parse(t, source), explicit(), true)

	result, err := rewrite.Lint(ctx)
	require.NoError(t, err)
	assert.Contains(t, result.Output, "const a = template(`A`")
	assert.Equal(t, "template", ctx.SpecifierName())
}

func TestBuildDirect(t *testing.T) {
	doc := parse(t, "export const A = <template>hi</template>;\n")
	ctx := rewrite.NewContext(doc, explicit(), false)

	code, err := rewrite.Build(ctx, doc.Nodes[0])
	require.NoError(t, err)
	assert.Equal(t, "template(`hi`,{moduleName:\"app/hello.gjs\",scope:instance=>({})})",
		jsgen.Print(code, jsgen.Options{Style: jsgen.Compact}))
	require.NotNil(t, ctx.Import)
	assert.Equal(t, 0, ctx.InsertionPoint())
}
