package shifts

import "turnos/shift-service/internal/models"

var transitionMap = map[string][]string{
	models.StatusAssigned:   {models.StatusInProgress, models.StatusCanceled},
	models.StatusInProgress: {models.StatusAttended, models.StatusCanceled},
	models.StatusAttended:   {},
	models.StatusCanceled:   {},
}

func ValidTransition(from, to string) bool {
	allowed, ok := transitionMap[from]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}
