// Package sequence implements filename metadata extraction and the
// multi-key ordering of collected items.
package sequence

import (
	"regexp"
	"strconv"
	"strings"

	"sequence_bot/internal/model"
)

var (
	qualityPattern = regexp.MustCompile(`(?i)\b(240p|360p|480p|540p|720p|1080p|1440p|2160p|4k)\b`)
	seasonPattern  = regexp.MustCompile(`(?i)\bs(?:eason)?[\s._-]*(\d{1,2})`)
	episodePattern = regexp.MustCompile(`(?i)e(?:p(?:isode)?)?[\s._-]*(\d{1,3})`)
	numberPattern  = regexp.MustCompile(`\d{1,3}`)
)

// qualityRanks orders known quality tags best-first for sorting purposes:
// a lower rank sorts earlier. Unknown qualities rank one past the table.
var qualityRanks = []string{"240p", "360p", "480p", "540p", "720p", "1080p", "1440p", "2160p", "4k"}

// UnknownQuality is the normalized quality of filenames with no
// recognizable quality tag.
const UnknownQuality = "unknown"

// QualityRank returns the sort rank of a normalized quality string.
func QualityRank(quality string) int {
	for i, q := range qualityRanks {
		if q == quality {
			return i
		}
	}
	return len(qualityRanks)
}

// Extract derives season, episode and quality metadata from a filename.
// It is a best-effort heuristic and never fails: filenames that match
// nothing degrade to a non-series item of unknown quality.
//
// The quality token is located first and stripped from a working copy so
// its digits (e.g. the 108 in "1080p") cannot be mistaken for a season or
// episode number. When no explicit episode token exists, the last
// standalone 1-3 digit run in the stripped name is used. That fallback can
// misfire on unrelated numbers such as years ("Show.2024.mkv" yields
// episode 4); this matches the long-standing collector behavior and is
// kept as is.
func Extract(filename string, format model.FileFormat, fileID string) model.Item {
	quality := UnknownQuality
	working := filename

	if m := qualityPattern.FindStringSubmatch(filename); m != nil {
		quality = strings.ToLower(m[1])
		working = qualityPattern.ReplaceAllString(filename, "")
	}

	season := 0
	if m := seasonPattern.FindStringSubmatch(working); m != nil {
		season, _ = strconv.Atoi(m[1])
	}

	episode := 0
	if m := episodePattern.FindStringSubmatch(working); m != nil {
		episode, _ = strconv.Atoi(m[1])
	} else if nums := numberPattern.FindAllString(working, -1); len(nums) > 0 {
		episode, _ = strconv.Atoi(nums[len(nums)-1])
	}

	return model.Item{
		Filename:    filename,
		Format:      format,
		FileID:      fileID,
		Season:      season,
		Episode:     episode,
		Quality:     quality,
		QualityRank: QualityRank(quality),
		IsSeries:    season != 0 || episode != 0,
	}
}
