package intel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/liamashdown/agentlens/internal/scorer"
)

// SignalHash fingerprints a scan so consumers can tell whether a displayed
// analysis still matches the scan that produced it. Not a security commitment.
func SignalHash(marketID string, holders []scorer.Result, now time.Time) string {
	parts := make([]string, len(holders))
	for i, h := range holders {
		parts[i] = fmt.Sprintf("%s:%s:%d", strings.ToLower(h.Address), h.Side, h.BotScore)
	}
	sort.Strings(parts)

	var b strings.Builder
	b.WriteString(strings.Join(parts, "|"))
	b.WriteString("|")
	b.WriteString(marketID)
	b.WriteString("|")
	b.WriteString(strconv.FormatInt(now.Unix(), 10))
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}
