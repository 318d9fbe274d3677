package core

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
// Every transaction commit is checked, so even raw store misuse cannot
// persist a dangling reference.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(TeamReferenceRule())
	engine.Register(WorkOrderReferenceRule())
	return engine
}
