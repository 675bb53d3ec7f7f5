package planner

import (
	"strings"

	"github.com/tidwall/gjson"
)

// parse applies the robust parsing policy to a raw generator response: the
// generator is unreliable, so this salvages every shape the prompt has been
// observed to produce before giving up and letting the caller fall back.
func parse(raw, userRequest string) (Decomposition, bool) {
	raw = strings.TrimSpace(raw)
	if !gjson.Valid(raw) {
		return Decomposition{}, false
	}
	root := gjson.Parse(raw)

	switch {
	case root.IsArray():
		// A bare list: use it as subtasks, reuse the user request as main_task.
		return fromSubtasksOnly(root, userRequest), true

	case root.IsObject():
		return fromObject(root, userRequest)

	default:
		return Decomposition{}, false
	}
}

func fromSubtasksOnly(subtasks gjson.Result, userRequest string) Decomposition {
	d := Decomposition{
		MainTask:            userRequest,
		Priorities:          map[string]string{},
		Dependencies:        map[string][]string{},
		EstimatedComplexity: "medium",
	}
	for _, el := range subtasks.Array() {
		d.Subtasks = append(d.Subtasks, subtaskTitle(el))
	}
	return d
}

func fromObject(obj gjson.Result, userRequest string) (Decomposition, bool) {
	// A single task object masquerading as the whole response.
	if title := obj.Get("title"); title.Exists() && !obj.Get("subtasks").Exists() {
		mainTask := title.String()
		if desc := obj.Get("description"); desc.Exists() {
			mainTask = desc.String()
		}
		return Decomposition{
			MainTask:            mainTask,
			Subtasks:            []string{title.String()},
			Priorities:          map[string]string{},
			Dependencies:        map[string][]string{},
			EstimatedComplexity: "medium",
		}, true
	}

	d := Decomposition{
		MainTask:            obj.Get("main_task").String(),
		Priorities:          map[string]string{},
		Dependencies:        map[string][]string{},
		EstimatedComplexity: "medium",
	}
	if d.MainTask == "" {
		d.MainTask = userRequest
	}

	switch {
	case obj.Get("subtasks").IsArray():
		for _, el := range obj.Get("subtasks").Array() {
			d.Subtasks = append(d.Subtasks, subtaskTitle(el))
		}
	case obj.Get("tasks").IsArray():
		// The model hallucinated "tasks" instead of "subtasks"; flatten it.
		for _, el := range obj.Get("tasks").Array() {
			d.Subtasks = append(d.Subtasks, subtaskTitle(el))
		}
	default:
		return Decomposition{}, false
	}
	if len(d.Subtasks) == 0 {
		return Decomposition{}, false
	}

	if p := obj.Get("priorities"); p.IsObject() {
		p.ForEach(func(key, value gjson.Result) bool {
			d.Priorities[key.String()] = value.String()
			return true
		})
	}
	if deps := obj.Get("dependencies"); deps.IsObject() {
		deps.ForEach(func(key, value gjson.Result) bool {
			var names []string
			for _, el := range value.Array() {
				names = append(names, el.String())
			}
			d.Dependencies[key.String()] = names
			return true
		})
	}
	if c := obj.Get("estimated_complexity"); c.Exists() {
		d.EstimatedComplexity = c.String()
	}

	return d, true
}

// subtaskTitle extracts a subtask's display title whether the element is a
// bare string or an object carrying a "title" field.
func subtaskTitle(el gjson.Result) string {
	if el.IsObject() {
		if title := el.Get("title"); title.Exists() {
			return title.String()
		}
		return el.Raw
	}
	return el.String()
}
