package languages

import (
	"strings"

	"github.com/sudankdk/refix-sandbox/internal/model"
)

const (
	Python     = "python"
	JavaScript = "javascript"
	TypeScript = "typescript"
)

const (
	PythonImage = "refix-sandbox-runner"
	NodeImage   = "refix-sandbox-runner-node"
)

const mib = 1024 * 1024

// Profile is the execution recipe for one runtime family.
type Profile struct {
	Name           string
	Image          string
	Ext            string
	Memory         int64 // bytes
	Command        []string
	SuccessMarkers []string
	FailureMarkers []string

	layout func(code, test string) []model.File
}

// Files lays out the sanitized code and test as workspace files, in write order.
func (p Profile) Files(code, test string) []model.File {
	return p.layout(code, test)
}

func pythonProfile() Profile {
	return Profile{
		Name:           Python,
		Image:          PythonImage,
		Ext:            "py",
		Memory:         256 * mib,
		Command:        []string{"python", "-m", "pytest", "test_run.py", "-v", "-p", "no:cacheprovider"},
		SuccessMarkers: []string{"passed"},
		FailureMarkers: []string{"failed", "errors"},
		layout: func(code, test string) []model.File {
			return []model.File{{Name: "test_run.py", Content: code + "\n\n" + test}}
		},
	}
}

func jsProfile(name, ext string) Profile {
	testFile := "main.test." + ext
	ts := ext == "ts"
	return Profile{
		Name:           name,
		Image:          NodeImage,
		Ext:            ext,
		Memory:         512 * mib,
		Command:        []string{"npx", "--no-install", "jest", "--ci", testFile},
		SuccessMarkers: []string{"passed"},
		FailureMarkers: []string{"failed"},
		layout: func(code, test string) []model.File {
			return []model.File{
				{Name: "main." + ext, Content: ExportDeclarations(code, ts)},
				{Name: testFile, Content: test},
			}
		},
	}
}

func normalize(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}
