package roster

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ieptracker/core"
	"github.com/trezcool/ieptracker/core/student"
)

var (
	frequencyTag  = "frequency"
	frequencyText = "invalid frequency"

	customDaysTag  = "customdays"
	customDaysText = "custom frequency must be at least 1 day"

	dateRequiredTag  = "daterequired"
	dateRequiredText = "this date is required"

	endDateTag  = "enddate"
	endDateText = "end date cannot be before start date"
)

func init() {
	_ = core.Validate.RegisterValidation(frequencyTag, frequencyValidation)
	core.RegisterCustomTranslation(frequencyTag, frequencyText)

	core.Validate.RegisterStructValidation(goalStructValidation, NewGoal{})
	core.RegisterCustomTranslation(customDaysTag, customDaysText)
	core.RegisterCustomTranslation(dateRequiredTag, dateRequiredText)
	core.RegisterCustomTranslation(endDateTag, endDateText)
}

// Custom Validators

func frequencyValidation(fl validator.FieldLevel) bool {
	return student.Frequency(fl.Field().String()).IsValid()
}

// goalStructValidation checks the goal period and the custom frequency.
func goalStructValidation(sl validator.StructLevel) {
	ng, ok := sl.Current().Interface().(NewGoal)
	if !ok {
		return
	}

	if ng.StartDate.IsZero() {
		sl.ReportError(ng.StartDate, "startDate", "StartDate", dateRequiredTag, "")
	}
	if ng.EndDate.IsZero() {
		sl.ReportError(ng.EndDate, "endDate", "EndDate", dateRequiredTag, "")
	}
	if !ng.StartDate.IsZero() && !ng.EndDate.IsZero() && ng.EndDate.Before(ng.StartDate) {
		sl.ReportError(ng.EndDate, "endDate", "EndDate", endDateTag, "")
	}

	if ng.Frequency == student.FrequencyCustom && ng.CustomFrequencyDays < 1 {
		sl.ReportError(ng.CustomFrequencyDays, "customFrequencyDays", "CustomFrequencyDays", customDaysTag, "")
	}
}
