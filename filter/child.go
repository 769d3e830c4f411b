package filter

// checkChild evaluates childAttr and childArrayAttr filters against the
// nested value held by the parent field.
func (e *Evaluator) checkChild(f *ChildFilter, value any, skipUndefined bool) bool {
	if f.Child == nil {
		e.logger.Warn("Filter has child type but no child filter set, ignoring filter",
			"field", f.Field(),
			"type", string(f.Kind()),
		)
		return true
	}

	if f.Kind() == KindChildAttr {
		nested, ok := asRecord(value)
		if !ok {
			nested = Record{}
		}
		return e.Check(f.Child, nested, skipUndefined)
	}

	if skipUndefined && length(value) == 0 {
		return true
	}
	matched := e.applyRecords(FilterSet{f.Child}, nestedRecords(value), skipUndefined)
	return len(matched) > 0
}
