package sequence

import (
	"cmp"
	"slices"
	"strings"

	"sequence_bot/internal/model"
)

// Sort annotates every item with extracted metadata, partitions the batch
// into series and non-series items, and orders each part. Series items are
// keyed according to mode; non-series items are always ordered by filename
// (case-insensitive) then quality rank. Both sorts are stable, so items
// comparing equal keep their insertion order. Callers concatenate series
// before non-series for the final dispatch order.
func Sort(items []model.Item, mode model.SortMode) (series, nonSeries []model.Item) {
	for _, it := range items {
		info := Extract(it.Filename, it.Format, it.FileID)
		if info.IsSeries {
			series = append(series, info)
		} else {
			nonSeries = append(nonSeries, info)
		}
	}

	slices.SortStableFunc(series, seriesCompare(mode))
	slices.SortStableFunc(nonSeries, func(a, b model.Item) int {
		if c := compareNames(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.QualityRank, b.QualityRank)
	})

	return series, nonSeries
}

func seriesCompare(mode model.SortMode) func(a, b model.Item) int {
	switch mode {
	case model.ModeQuality:
		return func(a, b model.Item) int {
			if c := cmp.Compare(a.QualityRank, b.QualityRank); c != 0 {
				return c
			}
			return compareNames(a, b)
		}
	case model.ModeSeason:
		return func(a, b model.Item) int {
			if c := cmp.Compare(a.Season, b.Season); c != 0 {
				return c
			}
			return compareNames(a, b)
		}
	case model.ModeEpisode:
		return func(a, b model.Item) int {
			if c := cmp.Compare(a.Episode, b.Episode); c != 0 {
				return c
			}
			return compareNames(a, b)
		}
	case model.ModeAllSQE:
		return func(a, b model.Item) int {
			if c := cmp.Compare(a.Season, b.Season); c != 0 {
				return c
			}
			if c := cmp.Compare(a.QualityRank, b.QualityRank); c != 0 {
				return c
			}
			return cmp.Compare(a.Episode, b.Episode)
		}
	default: // ModeAll
		return func(a, b model.Item) int {
			if c := cmp.Compare(a.Season, b.Season); c != 0 {
				return c
			}
			if c := cmp.Compare(a.Episode, b.Episode); c != 0 {
				return c
			}
			return cmp.Compare(a.QualityRank, b.QualityRank)
		}
	}
}

func compareNames(a, b model.Item) int {
	return strings.Compare(strings.ToLower(a.Filename), strings.ToLower(b.Filename))
}
