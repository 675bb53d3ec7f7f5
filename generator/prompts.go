package generator

// Fixed prompt templates used throughout the engine. Each is a Go text/template
// string; variables are supplied via the map passed to Generate/GenerateStructured.

// DecompositionPrompt instructs the model to turn a user request into a
// structured task decomposition (main_task, subtasks, priorities,
// dependencies, estimated_complexity).
const DecompositionPrompt = `You are a software engineering planner. Break the following request into an ordered list of concrete, independently reviewable subtasks.

Request: {{.user_request}}
{{if .context}}
Repository context:
{{.context}}
{{end}}
Return a JSON object with exactly these keys:
  "main_task": a one-sentence restatement of the request
  "subtasks": an array of subtask titles, ordered so earlier tasks unblock later ones
  "priorities": an object mapping each subtask title to one of CRITICAL, HIGH, MEDIUM, LOW
  "dependencies": an object mapping each subtask title to an array of subtask titles it depends on
  "estimated_complexity": one of low, medium, high

Do not include more than {{.max_tasks}} subtasks. Respond with JSON only, no prose.`

// TaskSolverPrompt instructs the model to produce the edits for a single
// task as fenced code blocks, each carrying the file path it should be
// written to.
const TaskSolverPrompt = `You are implementing one task in an ongoing engineering effort.

Task: {{.task_title}}
Description: {{.task_description}}
{{if .repo_context}}
Repository context:
{{.repo_context}}
{{end}}
{{if .instructions}}{{.instructions}}{{end}}

Write the code needed to complete this task. For every file you create or modify, emit a fenced code block whose opening fence carries the file path after a colon, for example:

` + "```go:path/to/file.go" + `
package example
` + "```" + `

Only emit fenced blocks for files you are actually changing. Do not emit a block for files you are leaving untouched.`

// FixCodePrompt asks the model for a single corrected version of a file that
// failed a syntax check.
const FixCodePrompt = `The following file failed a syntax check.

Path: {{.path}}
Error: {{.error}}

Current contents:
` + "```" + `
{{.code}}
` + "```" + `

Return the full corrected file contents as a single fenced code block with no other commentary.`
