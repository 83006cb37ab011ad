// Package docs extracts documentation metadata from logic program
// source: free-text comments and structured annotation directives. It
// operates on raw source lines, independently of the parser.
package docs

import (
	"regexp"
	"strings"

	"github.com/lplens/lplens/internal/lang"
)

// Comment is one comment span in a source file. Block comments
// (`%* ... *%`) may span multiple lines; single-line comments start at
// `%` and run to the end of the line.
type Comment struct {
	Loc     lang.Location
	IsBlock bool
	Content string
}

var (
	singleLinePattern = regexp.MustCompile(`%[^*].*$|%$`)
	blockStartPattern = regexp.MustCompile(`%\*`)
	blockEndPattern   = regexp.MustCompile(`\*%`)
)

// ExtractComments scans source lines and returns all comments in source
// order. Lines are 1-indexed in the returned locations.
func ExtractComments(lines []string, file string) []*Comment {
	var comments []*Comment

	inBlock := false
	var blockBegin lang.Position
	var blockContent strings.Builder

	for i, line := range lines {
		lineNo := i + 1

		if inBlock {
			if m := blockEndPattern.FindStringIndex(line); m != nil {
				blockContent.WriteString(line[:m[0]])
				comments = append(comments, &Comment{
					Loc: lang.Location{
						Begin: blockBegin,
						End:   lang.Position{File: file, Line: lineNo, Column: m[1]},
					},
					IsBlock: true,
					Content: blockContent.String(),
				})
				inBlock = false
				blockContent.Reset()
			} else {
				blockContent.WriteString(line)
				blockContent.WriteString("\n")
			}
			continue
		}

		if m := blockStartPattern.FindStringIndex(line); m != nil {
			blockBegin = lang.Position{File: file, Line: lineNo, Column: m[0] + 1}
			rest := line[m[1]:]
			if em := blockEndPattern.FindStringIndex(rest); em != nil {
				comments = append(comments, &Comment{
					Loc: lang.Location{
						Begin: blockBegin,
						End:   lang.Position{File: file, Line: lineNo, Column: m[1] + em[1]},
					},
					IsBlock: true,
					Content: rest[:em[0]],
				})
			} else {
				blockContent.WriteString(rest)
				blockContent.WriteString("\n")
				inBlock = true
			}
			continue
		}

		if m := singleLinePattern.FindStringIndex(line); m != nil {
			comments = append(comments, &Comment{
				Loc: lang.Location{
					Begin: lang.Position{File: file, Line: lineNo, Column: m[0] + 1},
					End:   lang.Position{File: file, Line: lineNo, Column: len(line)},
				},
				IsBlock: false,
				Content: strings.TrimSpace(line[m[0]+1:]),
			})
		}
	}

	return comments
}
