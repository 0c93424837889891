package blocklist

// Profile is the downloadable blocklist document. The field names are a
// fixed external contract consumed by the client plugin; do not rename.
type Profile struct {
	BlockedItemIDs []int `json:"blockedItemIds"`
	Timeframe      int   `json:"timeframe"`
	F2POnlyMode    bool  `json:"f2pOnlyMode"`
}

// BuildProfile assembles the export document from an evaluation result.
// F2P-only mode is flagged when any include rule conditions on f2p itself,
// so the client can skip members content entirely.
func BuildProfile(cfg RuleConfig, result EvalResult, timeframe int) Profile {
	blocked := result.BlockedIDs
	if blocked == nil {
		blocked = []int{}
	}
	return Profile{
		BlockedItemIDs: blocked,
		Timeframe:      timeframe,
		F2POnlyMode:    f2pOnly(cfg),
	}
}

func f2pOnly(cfg RuleConfig) bool {
	for _, rule := range cfg.Rules {
		if rule.Type != ActionInclude {
			continue
		}
		for _, cond := range rule.Conditions {
			if cond.Field == "f2p" && cond.Value == true {
				return true
			}
		}
	}
	return false
}
