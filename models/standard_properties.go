package models

// Aliases of the built-in member properties.
const (
	MemberCommentsAlias               = "umbracoMemberComments"
	MemberFailedPasswordAttemptsAlias = "umbracoMemberFailedPasswordAttempts"
	MemberApprovedAlias               = "umbracoMemberApproved"
	MemberLockedOutAlias              = "umbracoMemberLockedOut"
	MemberLastLockoutDateAlias        = "umbracoMemberLastLockoutDate"
	MemberLastLoginDateAlias          = "umbracoMemberLastLogin"
	MemberLastPasswordChangeDateAlias = "umbracoMemberLastPasswordChangeDate"
)

// StandardMemberPropertyTypes returns unsaved property types for the built-in
// member properties. A member type may or may not declare them.
func StandardMemberPropertyTypes() []*PropertyType {
	return []*PropertyType{
		{Alias: MemberCommentsAlias, Name: "Comments", PropertyEditorAlias: "Umbraco.TextboxMultiple", StorageType: StorageNtext},
		{Alias: MemberFailedPasswordAttemptsAlias, Name: "Failed Password Attempts", PropertyEditorAlias: "Umbraco.NoEdit", StorageType: StorageInteger},
		{Alias: MemberApprovedAlias, Name: "Is Approved", PropertyEditorAlias: "Umbraco.TrueFalse", StorageType: StorageInteger},
		{Alias: MemberLockedOutAlias, Name: "Is Locked Out", PropertyEditorAlias: "Umbraco.TrueFalse", StorageType: StorageInteger},
		{Alias: MemberLastLockoutDateAlias, Name: "Last Lockout Date", PropertyEditorAlias: "Umbraco.NoEdit", StorageType: StorageDate},
		{Alias: MemberLastLoginDateAlias, Name: "Last Login Date", PropertyEditorAlias: "Umbraco.NoEdit", StorageType: StorageDate},
		{Alias: MemberLastPasswordChangeDateAlias, Name: "Last Password Change Date", PropertyEditorAlias: "Umbraco.NoEdit", StorageType: StorageDate},
	}
}
