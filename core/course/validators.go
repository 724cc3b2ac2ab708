package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
)

var (
	modalityTag  = "modality"
	modalityText = "must be one of online, in-person, virtual or blended"

	requiredByModalityTag  = "required_by_modality"
	requiredByModalityText = "this field is required for the course modality"
)

// InitValidators registers the course validators on `validate`.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(modalityTag, modalityValidation)
	core.RegisterCustomTranslation(validate, translator, modalityTag, modalityText)

	validate.RegisterStructValidation(courseStructValidation, NewCourse{})
	core.RegisterCustomTranslation(validate, translator, requiredByModalityTag, requiredByModalityText)
}

// Custom Validators

// modalityValidation checks that the field holds a known modality tag.
func modalityValidation(fl validator.FieldLevel) bool {
	_, err := access.ParseModality(fl.Field().String())
	return err == nil
}

// courseStructValidation requires a content URL for self-paced modalities.
func courseStructValidation(sl validator.StructLevel) {
	nc := sl.Current().Interface().(NewCourse)
	mode, err := access.ParseModality(nc.Modality)
	if err != nil {
		return // reported by the field validator
	}
	if needsContent(mode) && nc.ContentURL == "" {
		sl.ReportError(nc.ContentURL, "content_url", "ContentURL", requiredByModalityTag, "")
	}
}

func needsContent(mode access.Modality) bool {
	return mode == access.Online || mode == access.Blended
}

func needsLocation(mode access.Modality) bool {
	return mode == access.InPerson || mode == access.Blended
}

func needsJoinURL(mode access.Modality) bool {
	return mode == access.Virtual
}

// sessionFieldErrors lists the fields a session of the given modality is missing.
// The course content URL is used when the session has none.
func sessionFieldErrors(mode access.Modality, crs Course, ns NewSession) []core.FieldError {
	var flds []core.FieldError
	if needsContent(mode) && ns.ContentURL == "" && crs.ContentURL == "" {
		flds = append(flds, core.FieldError{Field: "content_url", Error: requiredByModalityText})
	}
	if needsLocation(mode) && ns.Location == "" {
		flds = append(flds, core.FieldError{Field: "location", Error: requiredByModalityText})
	}
	if needsJoinURL(mode) && ns.JoinURL == "" {
		flds = append(flds, core.FieldError{Field: "join_url", Error: requiredByModalityText})
	}
	return flds
}

// isDispatchable reports whether `as` has every field its modality dispatches to.
func isDispatchable(as access.AccessSession) bool {
	mode := as.Course.Modality
	if mode == nil {
		return false
	}
	switch {
	case needsContent(mode) && !core.IsWebURL(as.ContentURL()):
		return false
	case needsLocation(mode) && as.Session.Location == "":
		return false
	case needsJoinURL(mode) && !core.IsWebURL(as.Session.JoinURL):
		return false
	}
	return true
}
