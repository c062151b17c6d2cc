package xtream

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	tagPrefix  = regexp.MustCompile(`^(\[[^\]]*\]|\|[^|]*\||[A-Z]{2,3}\s*[:|-])\s*`)
	unsafeRune = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	spaceRun   = regexp.MustCompile(`\s+`)
)

// CleanTitle strips provider tag prefixes (e.g. "[FR]", "|EN|", "VIP:") and
// characters that are illegal in file names, so a catalog title can be used
// as a destination file name.
func CleanTitle(title string) string {
	title = strings.TrimSpace(title)

	for {
		stripped := tagPrefix.ReplaceAllString(title, "")
		if stripped == title {
			break
		}

		title = strings.TrimSpace(stripped)
	}

	title = unsafeRune.ReplaceAllString(title, " ")
	title = spaceRun.ReplaceAllString(title, " ")
	title = strings.Trim(title, " .")

	return title
}

// FormatEpisodeTitle joins a series title and an episode title for display
// and file naming.
func FormatEpisodeTitle(series, episode string) string {
	series = CleanTitle(series)
	episode = CleanTitle(episode)

	switch {
	case series == "":
		return episode
	case episode == "":
		return series
	default:
		return fmt.Sprintf("%s - %s", series, episode)
	}
}
