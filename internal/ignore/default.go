package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// defaultHeader is written at the top of every generated ignore file.
const defaultHeader = `# Repomap ignore file
# Created automatically from your .gitignore plus default patterns.
# Edit this file to customize what gets included in repomap analysis.

# Repomap generated files:
repomap.md
.repomapignore

# Python virtual environments:
venv/
env/
.venv/
__pycache__/
*.pyc
*.pyo
build/
dist/
*.egg-info/

# Node.js dependencies:
node_modules/
npm-debug.log*
yarn-error.log*

# IDE and editor files:
.vscode/
.idea/
*.swp
*.swo
*~
.DS_Store
Thumbs.db

# Version control:
.git/
.hg/
.svn/

# Cache and temporary files:
.pytest_cache/
.mypy_cache/
.cache/
.tox/
htmlcov/
`

// defaultFooter holds extra patterns appended after any copied .gitignore
// content.
const defaultFooter = `
# Additional patterns (you can edit these):
*.log
*.tmp
*.so
*.min.js
*.min.css
*.map
.env
package-lock.json
yarn.lock
`

// EnsureIgnoreFile creates the project's ignore file if it does not exist,
// seeding it with default patterns plus the contents of an existing
// .gitignore. Returns the path of the ignore file.
//
// Failure to create the file is reported but non-fatal: the caller falls
// back to scanning with no ignore rules.
func EnsureIgnoreFile(root string) (string, error) {
	p := filepath.Join(root, IgnoreFileName)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}

	content := defaultHeader

	gitignore, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err == nil {
		if body := strings.TrimSpace(string(gitignore)); body != "" {
			content += "\n# Patterns copied from .gitignore:\n" + body + "\n"
		}
	}

	content += defaultFooter

	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("creating %s: %w", p, err)
	}
	return p, nil
}
