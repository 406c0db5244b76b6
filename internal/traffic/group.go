package traffic

import "sort"

// Sample is one source's counters and computed rate for a poll cycle.
type Sample struct {
	ID      string
	Name    string
	RxBytes uint64
	TxBytes uint64
	Rate    Rate
}

// GroupRate is the sum over the members of one logical application.
type GroupRate struct {
	Name    string
	Members []string
	RxBytes uint64
	TxBytes uint64
	Rate    Rate
}

// GroupBy sums samples per key. Groups are ordered by name and members keep
// the order they appear in samples.
func GroupBy(samples []Sample, key func(Sample) string) []GroupRate {
	index := make(map[string]int)
	var groups []GroupRate

	for _, s := range samples {
		k := key(s)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, GroupRate{Name: k})
		}
		g := &groups[i]
		g.Members = append(g.Members, s.Name)
		g.RxBytes += s.RxBytes
		g.TxBytes += s.TxBytes
		g.Rate.RxBps = round2(g.Rate.RxBps + s.Rate.RxBps)
		g.Rate.TxBps = round2(g.Rate.TxBps + s.Rate.TxBps)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}
