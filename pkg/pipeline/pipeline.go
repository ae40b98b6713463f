package pipeline

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"go.uber.org/zap"
)

// Step is one named table transformation.
type Step struct {
	Name  string
	Apply func(dataframe.DataFrame) (dataframe.DataFrame, error)
}

// Pipeline chains steps, feeding each step the previous step's output.
type Pipeline struct {
	steps []Step
	log   *zap.Logger
}

func NewPipeline(log *zap.Logger, steps ...Step) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{steps: steps, log: log}
}

// Then appends a step.
func (p *Pipeline) Then(name string, apply func(dataframe.DataFrame) (dataframe.DataFrame, error)) *Pipeline {
	p.steps = append(p.steps, Step{Name: name, Apply: apply})
	return p
}

// Transform runs every step in order and stops at the first failure, which
// is returned with the step's name.
func (p *Pipeline) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	for _, step := range p.steps {
		out, err := step.Apply(df)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("%s: %w", step.Name, err)
		}
		p.log.Debug("step done",
			zap.String("step", step.Name),
			zap.Int("rows", out.Nrow()),
			zap.Int("cols", out.Ncol()),
		)
		df = out
	}
	return df, nil
}
