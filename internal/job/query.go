package job

import (
	"path"
	"slices"
)

// Steps returns a copy of every step in order.
func (j *Job) Steps() []Step {
	return slices.Clone(j.steps)
}

// AppliedSteps returns the steps that have run.
func (j *Job) AppliedSteps() []Step {
	var out []Step
	for _, step := range j.steps {
		if step.applied {
			out = append(out, step)
		}
	}
	return out
}

// PendingSteps returns the steps that have not run yet.
func (j *Job) PendingSteps() []Step {
	var out []Step
	for _, step := range j.steps {
		if !step.applied {
			out = append(out, step)
		}
	}
	return out
}

// Applied reports whether no steps are pending.
func (j *Job) Applied() bool {
	return j.firstPending() == len(j.steps)
}

func (j *Job) firstPending() int {
	for i, step := range j.steps {
		if !step.applied {
			return i
		}
	}
	return len(j.steps)
}

// LastStep returns the last step of the given kind.
func (j *Job) LastStep(kind Kind) (Step, bool) {
	for i := len(j.steps) - 1; i >= 0; i-- {
		if j.steps[i].kind == kind {
			return j.steps[i], true
		}
	}
	return Step{}, false
}

// FetchStep returns the last fetch step.
func (j *Job) FetchStep() (Step, bool) { return j.LastStep(KindFetch) }

// FetchFileStep returns the last fetch_file step.
func (j *Job) FetchFileStep() (Step, bool) { return j.LastStep(KindFetchFile) }

// FetchURLStep returns the last fetch_url step.
func (j *Job) FetchURLStep() (Step, bool) { return j.LastStep(KindFetchURL) }

// GenerateStep returns the last generate step.
func (j *Job) GenerateStep() (Step, bool) { return j.LastStep(KindGenerate) }

// EncodeStep returns the last encode step.
func (j *Job) EncodeStep() (Step, bool) { return j.LastStep(KindEncode) }

// ProcessSteps returns every process step in order.
func (j *Job) ProcessSteps() []Step {
	var out []Step
	for _, step := range j.steps {
		if step.kind == KindProcess {
			out = append(out, step)
		}
	}
	return out
}

// UID is the uid of the last fetch step, or "".
func (j *Job) UID() string {
	step, ok := j.FetchStep()
	if !ok {
		return ""
	}
	return step.UID()
}

// UIDBasename is the final element of UID without its extension.
func (j *Job) UIDBasename() string {
	uid := j.UID()
	if uid == "" {
		return ""
	}
	base := path.Base(uid)
	return base[:len(base)-len(path.Ext(base))]
}

// UIDExtname is the extension of UID including its dot, e.g. ".jpg".
func (j *Job) UIDExtname() string {
	uid := j.UID()
	if uid == "" {
		return ""
	}
	return path.Ext(uid)
}

// EncodedFormat is the format of the last encode step, or "".
func (j *Job) EncodedFormat() string {
	step, ok := j.EncodeStep()
	if !ok {
		return ""
	}
	return step.Format()
}

// EncodedExtname is EncodedFormat with a leading dot, or "".
func (j *Job) EncodedExtname() string {
	format := j.EncodedFormat()
	if format == "" {
		return ""
	}
	return "." + format
}
