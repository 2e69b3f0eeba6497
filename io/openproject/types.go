package openproject

// Formattable is OpenProject's rich-text field representation
type Formattable struct {
	Format string `json:"format,omitempty"`
	Raw    string `json:"raw"`
}

// CommentRequest is the body of POST /work_packages/{id}/activities
type CommentRequest struct {
	Comment Formattable `json:"comment"`
}

// Link is a HAL link
type Link struct {
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

// WorkPackage is the subset of a work package this service reads
type WorkPackage struct {
	ID          int              `json:"id"`
	Subject     string           `json:"subject"`
	LockVersion int              `json:"lockVersion"`
	Links       WorkPackageLinks `json:"_links"`
}

// WorkPackageLinks holds the HAL links of a work package
type WorkPackageLinks struct {
	Status Link `json:"status"`
}

// StatusUpdateRequest is the body of PATCH /work_packages/{id}
type StatusUpdateRequest struct {
	LockVersion int               `json:"lockVersion"`
	Links       StatusUpdateLinks `json:"_links"`
}

// StatusUpdateLinks points a work package at a new status
type StatusUpdateLinks struct {
	Status Link `json:"status"`
}

// ErrorResponse represents an error response from the OpenProject API
type ErrorResponse struct {
	Type            string `json:"_type"`
	ErrorIdentifier string `json:"errorIdentifier"`
	Message         string `json:"message"`
}
