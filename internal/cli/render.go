package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/proactive/dataspace-browser/internal/browser"
)

// renderHeader prints the location line and breadcrumb trail.
func renderHeader(w io.Writer, s *browser.BrowserSession) {
	crumbs := s.Breadcrumbs()
	names := make([]string, 0, len(crumbs))
	for _, c := range crumbs {
		names = append(names, c.Name)
	}
	fmt.Fprintf(w, "%s  %s\n", s.Dataspace().Location(), strings.Join(names, " > "))
	if s.Filter() != "*" || s.ShowHidden() {
		fmt.Fprintf(w, "filter: %s  hidden: %t\n", s.Filter(), s.ShowHidden())
	}
}

// renderListing prints directories then files. The selected entry is
// marked with "*".
func renderListing(w io.Writer, l *browser.Listing, selected *browser.Entry) {
	if l.Len() == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tSIZE\tMODIFIED\tTYPE\tPERMISSIONS")
	row := func(e browser.Entry) {
		mark := " "
		if selected != nil && selected.Same(e) {
			mark = "*"
		}
		size := "-"
		if !e.IsDir() && e.Size >= 0 {
			size = humanize.IBytes(uint64(e.Size))
		}
		modified := "-"
		if !e.LastModified.IsZero() {
			modified = e.LastModified.Format("2006-01-02 15:04")
		}
		name := e.Name
		if e.IsDir() {
			name += "/"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", mark, name, size, modified, orDash(e.Type), orDash(e.Permissions))
	}
	for _, e := range l.Directories {
		row(e)
	}
	for _, e := range l.Files {
		row(e)
	}
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
