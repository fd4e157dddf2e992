package ingestion

import (
	"sort"

	"github.com/guttosm/tickapi/internal/domain/models"
)

const (
	smaPeriod = 20
	rsiPeriod = 14
)

// ApplyIndicators sorts rows by date and fills SMA20 and RSI on a copy.
//
// Behavior:
//   - SMA20 is the simple mean of the last 20 closes; nil until 20 closes are seen.
//   - RSI is the 14-period Wilder RSI; nil until 15 closes are seen, 100 when there are no losses.
//   - Rows without a close are skipped by both windows and get nil indicators.
//   - Existing indicator values are overwritten.
func ApplyIndicators(rows []models.StockRow) []models.StockRow {
	out := make([]models.StockRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	window := make([]float64, 0, smaPeriod)
	var sum float64

	var (
		prev             float64
		seen             int
		avgGain, avgLoss float64
	)

	for i := range out {
		out[i].SMA20 = nil
		out[i].RSI = nil
		if out[i].Close == nil {
			continue
		}
		c := *out[i].Close

		// SMA
		window = append(window, c)
		sum += c
		if len(window) > smaPeriod {
			sum -= window[0]
			window = window[1:]
		}
		if len(window) == smaPeriod {
			out[i].SMA20 = models.Float(sum / smaPeriod)
		}

		// RSI
		seen++
		if seen > 1 {
			gain, loss := 0.0, 0.0
			if d := c - prev; d > 0 {
				gain = d
			} else {
				loss = -d
			}
			switch {
			case seen <= rsiPeriod+1:
				avgGain += gain / rsiPeriod
				avgLoss += loss / rsiPeriod
			default:
				avgGain = (avgGain*(rsiPeriod-1) + gain) / rsiPeriod
				avgLoss = (avgLoss*(rsiPeriod-1) + loss) / rsiPeriod
			}
			if seen >= rsiPeriod+1 {
				out[i].RSI = models.Float(rsi(avgGain, avgLoss))
			}
		}
		prev = c
	}

	return out
}

func rsi(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
