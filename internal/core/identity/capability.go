package identity

type Action string

const (
	ActionCreate        Action = "create"
	ActionRead          Action = "read"
	ActionList          Action = "list"
	ActionListAll       Action = "list_all"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionPay           Action = "pay"
	ActionAttachQuote   Action = "attach_quote"
	ActionAttachReceipt Action = "attach_receipt"
	ActionManage        Action = "manage"
)

type Kind string

const (
	KindExpense  Kind = "expense"
	KindCategory Kind = "category"
	KindAccount  Kind = "account"
	KindReceiver Kind = "receiver"
	KindUser     Kind = "user"
	KindReport   Kind = "report"
)

// Resource is what an action targets. OwnerID is only meaningful for
// expenses; zero means "no particular owner".
type Resource struct {
	Kind    Kind
	OwnerID int64
}

func Expense(ownerID int64) Resource {
	return Resource{Kind: KindExpense, OwnerID: ownerID}
}

func Of(kind Kind) Resource {
	return Resource{Kind: kind}
}

// Can is the single capability check. Phase rules (e.g. edits only while
// created) are enforced by the expense service, not here.
func Can(s *Session, action Action, res Resource) bool {
	if s == nil || s.User.ID == 0 {
		return false
	}
	if s.Roles.Has(RoleAdmin) {
		return true
	}

	owner := res.OwnerID != 0 && res.OwnerID == s.User.ID

	switch res.Kind {
	case KindExpense:
		switch action {
		case ActionCreate:
			return s.Roles.Has(RoleRequester)
		case ActionRead:
			return owner || s.Roles.HasAny(RoleApprover, RolePayer, RoleViewer)
		case ActionList:
			return true
		case ActionListAll:
			return s.Roles.HasAny(RoleApprover, RolePayer, RoleViewer)
		case ActionUpdate, ActionDelete, ActionAttachQuote:
			return owner && s.Roles.Has(RoleRequester)
		case ActionApprove, ActionReject:
			return s.Roles.Has(RoleApprover)
		case ActionPay, ActionAttachReceipt:
			return s.Roles.Has(RolePayer)
		}
	case KindCategory, KindAccount, KindReceiver:
		return action == ActionRead || action == ActionList
	case KindReport:
		return (action == ActionRead || action == ActionList) && s.Roles.Has(RoleViewer)
	case KindUser:
		return false
	}
	return false
}
