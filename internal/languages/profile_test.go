package languages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRecognizedLanguages(t *testing.T) {
	for _, lang := range []string{"javascript", "JavaScript", "JAVASCRIPT", " typescript ", "TypeScript", "python", "PYTHON"} {
		t.Run(lang, func(t *testing.T) {
			p := Resolve(lang)
			assert.NotEmpty(t, p.Image)
			assert.NotEmpty(t, p.Command)
			assert.NotEmpty(t, p.SuccessMarkers)
			assert.NotEmpty(t, p.FailureMarkers)
			assert.Positive(t, p.Memory)
		})
	}
}

func TestResolveFamilies(t *testing.T) {
	assert.Equal(t, JavaScript, Resolve("JavaScript").Name)
	assert.Equal(t, "js", Resolve("javascript").Ext)
	assert.Equal(t, TypeScript, Resolve("TYPESCRIPT").Name)
	assert.Equal(t, "ts", Resolve("typescript").Ext)

	for _, lang := range []string{"python", "", "ruby", "cobol", "node"} {
		assert.Equal(t, Python, Resolve(lang).Name, "language %q should fall back to the default profile", lang)
	}
}

func TestPythonLayout(t *testing.T) {
	files := Resolve("python").Files("def add(a,b): return a+b", "def test_add(): assert add(2,3)==5")
	require.Len(t, files, 1)
	assert.Equal(t, "test_run.py", files[0].Name)
	assert.Equal(t, "def add(a,b): return a+b\n\ndef test_add(): assert add(2,3)==5", files[0].Content)
}

func TestTypeScriptLayout(t *testing.T) {
	test := "import {mul} from './main'; test('mul', () => expect(mul(2,3)).toBe(6));"
	files := Resolve("typescript").Files("function mul(a,b){return a*b}", test)
	require.Len(t, files, 2)
	assert.Equal(t, "main.ts", files[0].Name)
	assert.Equal(t, "export function mul(a,b){return a*b}", files[0].Content)
	assert.Equal(t, "main.test.ts", files[1].Name)
	assert.Equal(t, test, files[1].Content)
	assert.Contains(t, Resolve("typescript").Command, "main.test.ts")
}

func TestExportDeclarations(t *testing.T) {
	tests := []struct {
		name string
		code string
		ts   bool
		want string
	}{
		{"function", "function f() {}", false, "export function f() {}"},
		{"async function", "async function f() {}", false, "export async function f() {}"},
		{"already exported", "export function f() {}", false, "export function f() {}"},
		{"const and class", "const a = 1\nclass B {}", false, "export const a = 1\nexport class B {}"},
		{"nested stays", "function f() {\n  const x = 1\n  return x\n}", false, "export function f() {\n  const x = 1\n  return x\n}"},
		{"ts interface", "interface P { x: number }\ntype Q = P", true, "export interface P { x: number }\nexport type Q = P"},
		{"ts abstract class", "abstract class Shape {}", true, "export abstract class Shape {}"},
		{"js ignores ts keywords", "type = 3", false, "type = 3"},
		{"identifier prefix", "functional()", false, "functional()"},
		{"unindented body", "function mul(a,b){\nconst r = a*b;\nreturn r;\n}", true, "export function mul(a,b){\nconst r = a*b;\nreturn r;\n}"},
		{"after body closes", "function f(){\nlet x = 1\n}\nconst y = 2", false, "export function f(){\nlet x = 1\n}\nexport const y = 2"},
		{"class body", "class A {\nconst = 1\n}", false, "export class A {\nconst = 1\n}"},
		{"multiline call args", "run(\nfunction () {}\n)\nvar z", false, "run(\nfunction () {}\n)\nexport var z"},
		{"brace in string", "const s = \"{\"\nconst t = '}'\nlet u", false, "export const s = \"{\"\nexport const t = '}'\nexport let u"},
		{"brace in comment", "// {\n/* {\n} */\nconst a = 1", false, "// {\n/* {\n} */\nexport const a = 1"},
		{"template literal", "const q = `\nconst x = ${ {a: 1}.a }\n`\nconst w = 2", false, "export const q = `\nconst x = ${ {a: 1}.a }\n`\nexport const w = 2"},
		{"template substitution spans lines", "const q = `${\nfoo({\n})\n}`\nlet n", false, "export const q = `${\nfoo({\n})\n}`\nexport let n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExportDeclarations(tt.code, tt.ts))
		})
	}
}

func TestNewRegistryOverrides(t *testing.T) {
	r, err := NewRegistry(map[string]Override{
		"Python":     {Image: "py-custom:3.12", Memory: "384m"},
		"typescript": {Image: "node-custom"},
	})
	require.NoError(t, err)

	assert.Equal(t, "py-custom:3.12", r.Resolve("python").Image)
	assert.Equal(t, int64(384*mib), r.Resolve("python").Memory)
	assert.Equal(t, "py-custom:3.12", r.Resolve("unknown").Image)
	assert.Equal(t, "node-custom", r.Resolve("typescript").Image)
	assert.Equal(t, NodeImage, r.Resolve("javascript").Image)
	assert.Equal(t, []string{"node-custom", "py-custom:3.12", NodeImage}, r.Images())
}

func TestNewRegistryRejectsBadOverrides(t *testing.T) {
	_, err := NewRegistry(map[string]Override{"ruby": {Image: "ruby"}})
	assert.Error(t, err)

	_, err = NewRegistry(map[string]Override{"python": {Memory: "lots"}})
	assert.Error(t, err)
}
