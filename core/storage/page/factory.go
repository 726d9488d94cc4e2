package page

import "fmt"

// CreatePage constructs the concrete variant for a type tag read off disk.
// An unrecognized tag deliberately falls through to a Header page: the
// header content codec is the strictest validator in the format, so a
// corrupt tag surfaces as ErrInvalidFormat there instead of being guessed
// at here.
func CreatePage(id PageID, tag PageType) Page {
	switch tag {
	case PageTypeEmpty:
		return NewEmptyPage(id)
	case PageTypeCollectionList:
		return NewCollectionListPage(id)
	case PageTypeCollection:
		return NewCollectionPage(id)
	case PageTypeIndex:
		return NewIndexPage(id)
	case PageTypeData:
		return NewDataPage(id)
	case PageTypeExtend:
		return NewExtendPage(id)
	case PageTypeHeader:
		return NewHeaderPage(id)
	default:
		return NewHeaderPage(id)
	}
}

// NewPageOfType constructs a specific requested variant. Unlike CreatePage
// there is no defensive fallback: a caller asking for a variant outside the
// known set is a programming error and gets ErrUnsupportedVariant.
func NewPageOfType(id PageID, t PageType) (Page, error) {
	switch t {
	case PageTypeEmpty, PageTypeHeader, PageTypeCollectionList,
		PageTypeCollection, PageTypeIndex, PageTypeData, PageTypeExtend:
		return CreatePage(id, t), nil
	default:
		return nil, fmt.Errorf("%w: type tag %d", ErrUnsupportedVariant, t)
	}
}
