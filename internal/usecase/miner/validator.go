package miner

import "josekiminer/internal/domain"

// bestCandidate picks the reference move the tolerance band is measured from:
// highest winrate, ties broken by higher score, then by the engine's own
// ranking (first listed wins).
func bestCandidate(candidates []domain.MoveCandidate) domain.MoveCandidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Winrate > best.Winrate || (c.Winrate == best.Winrate && c.ScoreLead > best.ScoreLead) {
			best = c
		}
	}
	return best
}

// selectValid returns the candidates within tolerance of the best move, in the
// engine's ranking order. A candidate is accepted when its winrate drop and
// score drop from best are both within tolerance and it has been read deeply
// enough. Winrate and scoreLead are from the mover's perspective, so a drop is
// best minus candidate; a candidate above best on either axis is never
// rejected on that axis.
//
// unstable reports that the best candidate itself is under the visits floor:
// the position's evaluation is shaky and the node should be flagged. The
// visits gate still applies to every candidate including best, so the
// accepted set may come back empty.
func selectValid(candidates []domain.MoveCandidate, cfg Config) (accepted []domain.MoveCandidate, unstable bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	best := bestCandidate(candidates)
	unstable = best.Visits < cfg.MinVisits

	for _, c := range candidates {
		if best.Winrate-c.Winrate > cfg.WinrateTolerance {
			continue
		}
		if best.ScoreLead-c.ScoreLead > cfg.ScoreTolerance {
			continue
		}
		if c.Visits < cfg.MinVisits {
			continue
		}
		accepted = append(accepted, c)
	}
	return accepted, unstable
}
