package auditor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kittclouds/storykitt/pkg/narrative"
)

// scanCharacters tracks a per-character alive flag from death/revival event
// tags. A character mentioned while tracked dead, in a node without a
// revival tag, reappears after death.
func (a *Auditor) scanCharacters(window []narrative.Node) []Finding {
	var findings []Finding
	alive := make(map[string]bool)

	for i, node := range window {
		var deathTags, revivalTags []string
		for _, tag := range node.Metadata.Events {
			classes := a.tags.classify(tag)
			if classes[classDeath] {
				deathTags = append(deathTags, tag)
			}
			if classes[classRevival] {
				revivalTags = append(revivalTags, tag)
			}
		}
		hasRevival := len(revivalTags) > 0

		// Mentions are judged before this node's own deaths apply: dying
		// in the turn you appear in is not a contradiction.
		for _, name := range node.Metadata.Characters {
			key := strings.ToLower(name)
			wasAlive, seen := alive[key]
			if seen && !wasAlive && !hasRevival {
				findings = append(findings, Finding{
					Type:      TypeCharacter,
					Severity:  SeverityCritical,
					TurnIndex: i,
					Description: fmt.Sprintf(
						"character %q reappears after death without a revival event", name),
					SuggestedFix: fmt.Sprintf(
						"add a revival event for %q or remove the mention", name),
				})
			}
			if !seen {
				alive[key] = true
			}
		}

		for _, tag := range revivalTags {
			for _, name := range tagTargets(tag, node.Metadata.Characters) {
				alive[strings.ToLower(name)] = true
			}
		}
		for _, tag := range deathTags {
			for _, name := range tagTargets(tag, node.Metadata.Characters) {
				alive[strings.ToLower(name)] = false
			}
		}
	}
	return findings
}

// tagTargets picks the characters a death or revival tag applies to: the
// ones named inside the tag text, or every character listed on the node
// when the tag names nobody.
func tagTargets(tag string, chars []string) []string {
	lower := strings.ToLower(tag)
	var named []string
	for _, name := range chars {
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			named = append(named, name)
		}
	}
	if len(named) > 0 {
		return named
	}
	return chars
}

// scanLocations flags a location change with no travel-class tag on the
// changing node.
func (a *Auditor) scanLocations(window []narrative.Node) []Finding {
	var findings []Finding
	last := ""

	for i, node := range window {
		loc := node.Metadata.Location
		if loc == "" {
			continue
		}
		if last != "" && !strings.EqualFold(loc, last) {
			classes := a.tags.classifyAll(append(node.Metadata.Events, node.Tags...))
			if !classes[classTravel] {
				findings = append(findings, Finding{
					Type:      TypeLocation,
					Severity:  SeverityModerate,
					TurnIndex: i,
					Description: fmt.Sprintf(
						"location changed from %q to %q with no travel event", last, loc),
					SuggestedFix: "add a travel or transition beat between the scenes",
				})
			}
		}
		last = loc
	}
	return findings
}

var timePhrasePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:\d+|one|two|three|four|five|six|seven|eight|nine|ten|a few|several) (?:day|days|hour|hours|week|weeks|month|months|year|years|minute|minutes|moment|moments) (?:ago|later|before|after|earlier|hence|past)\b`),
	regexp.MustCompile(`\b(?:yesterday|today|tomorrow|tonight)\b`),
	regexp.MustCompile(`\b(?:dawn|dusk|sunrise|sunset|noon|midnight|nightfall)\b`),
}

// scanTimeline is the only scanner that reads prose. It flags the same
// literal relative-time phrase recurring at a non-adjacent turn.
func scanTimeline(window []narrative.Node) []Finding {
	var findings []Finding
	lastSeen := make(map[string]int)

	for i, node := range window {
		content := strings.ToLower(node.Content)
		seenThisNode := make(map[string]bool)
		for _, re := range timePhrasePatterns {
			for _, phrase := range re.FindAllString(content, -1) {
				if seenThisNode[phrase] {
					continue
				}
				seenThisNode[phrase] = true
				if prev, ok := lastSeen[phrase]; ok && i-prev > 1 {
					findings = append(findings, Finding{
						Type:      TypeTimeline,
						Severity:  SeverityModerate,
						TurnIndex: i,
						Description: fmt.Sprintf(
							"time reference %q repeats from turn %d", phrase, prev),
						SuggestedFix: "re-anchor the scene in time or drop the repeated phrase",
					})
				}
				lastSeen[phrase] = i
			}
		}
	}
	return findings
}

type plotThread struct {
	tag      string
	openedAt int
	open     bool
}

// scanPlotThreads tracks quest/mission/goal tags as opened threads; a
// close-class tag resolves the most recent matching open thread. Threads
// still open more than 5 turns after opening are flagged.
func (a *Auditor) scanPlotThreads(window []narrative.Node) []Finding {
	var threads []plotThread

	for i, node := range window {
		for _, tag := range node.Metadata.Events {
			classes := a.tags.classify(tag)
			switch {
			case classes[classPlotClose]:
				closeThread(threads, tag)
			case classes[classPlotOpen]:
				threads = append(threads, plotThread{tag: tag, openedAt: i, open: true})
			}
		}
	}

	lastIndex := len(window) - 1
	var findings []Finding
	for _, t := range threads {
		if t.open && lastIndex-t.openedAt > 5 {
			findings = append(findings, Finding{
				Type:      TypePlot,
				Severity:  SeverityModerate,
				TurnIndex: t.openedAt,
				Description: fmt.Sprintf(
					"plot thread %q introduced but never resolved", t.tag),
				SuggestedFix: "resolve the thread or acknowledge it is still pending",
			})
		}
	}
	return findings
}

// closeThread resolves the most recent open thread sharing a word with the
// closing tag, falling back to the most recent open thread.
func closeThread(threads []plotThread, closing string) {
	words := strings.Fields(strings.ToLower(closing))
	for i := len(threads) - 1; i >= 0; i-- {
		if !threads[i].open {
			continue
		}
		opened := strings.ToLower(threads[i].tag)
		for _, w := range words {
			if strings.Contains(opened, w) {
				threads[i].open = false
				return
			}
		}
	}
	for i := len(threads) - 1; i >= 0; i-- {
		if threads[i].open {
			threads[i].open = false
			return
		}
	}
}

// scanWorldState flags destruction and construction tags landing within 3
// turns of each other.
func (a *Auditor) scanWorldState(window []narrative.Node) []Finding {
	var findings []Finding
	lastDestruction, lastConstruction := -100, -100

	for i, node := range window {
		classes := a.tags.classifyAll(node.Metadata.Events)
		if classes[classDestruction] {
			if i-lastConstruction <= 3 {
				findings = append(findings, Finding{
					Type:      TypeWorldState,
					Severity:  SeverityModerate,
					TurnIndex: i,
					Description: fmt.Sprintf(
						"destruction at turn %d contradicts construction at turn %d",
						i, lastConstruction),
					SuggestedFix: "space the world-state reversal out or explain it",
				})
			}
			lastDestruction = i
		}
		if classes[classConstruction] {
			if i-lastDestruction <= 3 {
				findings = append(findings, Finding{
					Type:      TypeWorldState,
					Severity:  SeverityModerate,
					TurnIndex: i,
					Description: fmt.Sprintf(
						"construction at turn %d contradicts destruction at turn %d",
						i, lastDestruction),
					SuggestedFix: "space the world-state reversal out or explain it",
				})
			}
			lastConstruction = i
		}
	}
	return findings
}
