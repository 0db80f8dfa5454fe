package ide

import (
	"net/url"
	"regexp"
	"strings"
)

// Workspace-path inference works off two weak signals: the window title
// ("ProjectName - Product - ...") gives the project anchor, and open-tab
// labels often embed an absolute file path. The workspace root is the
// path truncated at the anchor segment, or the path's parent directory
// when no segment matches.

var (
	fileURIRe   = regexp.MustCompile(`file://[^\s"'|\x{2022}\x{00b7}]+`)
	drivePathRe = regexp.MustCompile(`[A-Za-z]:[\\/][^|"'\x{2022}\x{00b7}\x{2014}\n]*`)
	posixPathRe = regexp.MustCompile(`(?:^|[\s("'\[])(/[^|"'\s\x{2022}\x{00b7}\x{2014}]+)`)
)

// projectAnchor extracts the project name from a window title of the form
// "ProjectName - Product - ...". Empty when the title does not carry the
// product name or has no leading segment.
func projectAnchor(title, product string) string {
	if product == "" || !strings.Contains(title, product) {
		return ""
	}
	parts := strings.Split(title, " - ")
	if len(parts) < 2 {
		return ""
	}
	anchor := strings.TrimSpace(parts[0])
	if anchor == "" || anchor == product {
		return ""
	}
	return anchor
}

// extractPath pulls the first embedded absolute path out of a label.
// A decodable file URI is preferred over a bare path.
func extractPath(label string) (string, bool) {
	if m := fileURIRe.FindString(label); m != "" {
		if u, err := url.Parse(m); err == nil && u.Path != "" {
			p := u.Path
			// file:///C:/x decodes with a leading slash before the drive.
			if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
				p = p[1:]
			}
			if decoded, err := url.PathUnescape(p); err == nil {
				p = decoded
			}
			return trimPathTail(p), true
		}
	}

	if m := drivePathRe.FindString(label); m != "" {
		return trimPathTail(m), true
	}

	if m := posixPathRe.FindStringSubmatch(label); m != nil {
		return trimPathTail(m[1]), true
	}

	return "", false
}

// trimPathTail strips trailing punctuation that belongs to the label, not
// the path.
func trimPathTail(p string) string {
	return strings.TrimRight(strings.TrimSpace(p), `)]}>,.:;"'`)
}

// workspaceRoot truncates path at the segment case-insensitively equal to
// anchor. Without an anchor match it falls back to the path's parent
// directory.
func workspaceRoot(path, anchor string) (string, bool) {
	sep := "/"
	if strings.Contains(path, `\`) {
		sep = `\`
	}
	segs := strings.Split(path, sep)

	if anchor != "" {
		for i, seg := range segs {
			if strings.EqualFold(seg, anchor) {
				return strings.Join(segs[:i+1], sep), true
			}
		}
	}

	if len(segs) < 2 {
		return "", false
	}
	parent := strings.Join(segs[:len(segs)-1], sep)
	if parent == "" {
		parent = sep // POSIX root
	}
	return parent, true
}

// inferWorkspacePath combines the title anchor and tab labels into a
// workspace root. Returns false when no label carries a path signal.
func inferWorkspacePath(title string, labels []string, product string) (string, bool) {
	anchor := projectAnchor(title, product)

	for _, label := range labels {
		path, ok := extractPath(label)
		if !ok {
			continue
		}
		if root, ok := workspaceRoot(path, anchor); ok {
			return root, true
		}
	}

	return "", false
}
