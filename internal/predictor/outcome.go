package predictor

// LoadOutcome is either Loaded (model name and variant) or Failed (reason).
type LoadOutcome struct {
	loaded    bool
	modelName string
	variant   Variant
	reason    string
}

func Loaded(modelName string, variant Variant) LoadOutcome {
	return LoadOutcome{loaded: true, modelName: modelName, variant: variant}
}

func Failed(reason string) LoadOutcome {
	return LoadOutcome{reason: reason}
}

func (o LoadOutcome) IsLoaded() bool { return o.loaded }
func (o LoadOutcome) ModelName() string { return o.modelName }
func (o LoadOutcome) Variant() Variant { return o.variant }
func (o LoadOutcome) Reason() string { return o.reason }

func (o LoadOutcome) String() string {
	if o.loaded {
		return "loaded " + o.modelName + " (" + o.variant.String() + ")"
	}
	return "failed: " + o.reason
}
