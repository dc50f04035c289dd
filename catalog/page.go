package catalog

// PageRequest addresses one page of an ordered listing. PageNumber is 1-based.
type PageRequest struct {
	PageNumber int
	PageSize   int
}

// Page builds a PageRequest.
func Page(pageNumber, pageSize int) PageRequest {
	return PageRequest{PageNumber: pageNumber, PageSize: pageSize}
}

// Validate rejects non-positive page numbers and sizes.
func (p PageRequest) Validate() error {
	if p.PageNumber < 1 || p.PageSize < 1 {
		return ErrInvalidPageRequest
	}

	return nil
}

// Offset returns the number of rows to skip: (PageNumber - 1) * PageSize.
func (p PageRequest) Offset() uint {
	return uint((p.PageNumber - 1) * p.PageSize)
}

// Limit returns the page size as a row limit.
func (p PageRequest) Limit() uint {
	return uint(p.PageSize)
}
