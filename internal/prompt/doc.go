// Package prompt holds the pure building blocks of prompt evolution: the
// trigger cadence, the payload guard applied to every LLM input field, the
// policy gate that accepts or rejects candidate system prompts, and the fixed
// instructions sent to the editor model.
//
// Nothing in this package performs I/O. The application services compose
// these pieces with the LLM transport and the prompt ledger.
//
//	trigger := prompt.Trigger{Cadence: prompt.DefaultTriggerCadence}
//	if trigger.ShouldEvolve(userMessages) {
//	    // schedule an evolution run
//	}
//
//	policy := prompt.DefaultPolicy()
//	if err := policy.Check(candidate); err != nil {
//	    // errors.Is(err, domain.ErrValidation)
//	}
package prompt
