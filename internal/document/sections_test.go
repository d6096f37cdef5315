package document

import (
	"strings"
	"testing"
)

const sampleDoc = `Intro paragraph before any heading.

# Overview

The product does things.

## Problem

Users have a problem: X.

## Solution

We solve it.
`

func TestSplitSectionsRoundTripsLosslessly(t *testing.T) {
	sections := SplitSections(sampleDoc)
	if got := JoinSections(sections); got != sampleDoc {
		t.Fatalf("join(split(content)) != content:\n%q", got)
	}
	if len(sections) != 4 {
		t.Fatalf("len(sections) = %d, want 4", len(sections))
	}
	if sections[0].Heading != "" || sections[0].Level != 0 {
		t.Fatalf("expected preamble section, got %+v", sections[0])
	}
	if sections[1].Heading != "Overview" || sections[1].Level != 1 {
		t.Fatalf("unexpected section 1: %+v", sections[1])
	}
	if sections[2].Heading != "Problem" || sections[2].Level != 2 {
		t.Fatalf("unexpected section 2: %+v", sections[2])
	}
	if !strings.HasPrefix(sections[2].Raw, "## Problem") {
		t.Fatalf("raw block must include the heading line, got %q", sections[2].Raw)
	}
}

func TestSplitSectionsWithoutHeadings(t *testing.T) {
	content := "just a plain paragraph\nwith two lines\n"
	sections := SplitSections(content)
	if len(sections) != 1 {
		t.Fatalf("len(sections) = %d, want 1", len(sections))
	}
	if sections[0].Raw != content {
		t.Fatalf("raw = %q, want full content", sections[0].Raw)
	}
	if JoinSections(sections) != content {
		t.Fatalf("round trip failed")
	}
}

func TestSplitSectionsEmptyContent(t *testing.T) {
	if sections := SplitSections(""); sections != nil {
		t.Fatalf("expected nil sections for empty content, got %+v", sections)
	}
}

func TestSplitSectionsNoTrailingNewline(t *testing.T) {
	content := "# Title\n\nbody without trailing newline"
	sections := SplitSections(content)
	if JoinSections(sections) != content {
		t.Fatalf("round trip failed for %q", content)
	}
	if sections[0].Heading != "Title" {
		t.Fatalf("heading = %q, want Title", sections[0].Heading)
	}
}
