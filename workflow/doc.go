// Package workflow holds the static workflow and task records that describe
// how messages are meant to move through a deployment.
//
// Records are plain configuration: they are loaded, validated and looked up,
// never scheduled or executed here. The one piece of behavior is
// Task.EnrichmentRules, which turns an Enrich task's input into the rule list
// accepted by the enrichment engine.
//
//	wf := workflow.NewWorkflow("inbound-sct")
//	wf.Tasks = append(wf.Tasks, workflow.NewTask("enrich-fx", workflow.FunctionEnrich))
//	if err := wf.Validate(); err != nil {
//	    return err
//	}
package workflow
