package models

import "github.com/google/uuid"

// Node object type discriminators stored in umbracoNode.nodeObjectType.
var (
	ObjectTypeSystemRoot  = uuid.MustParse("EA7D8624-4CFE-4578-A871-24AA946BF34D")
	ObjectTypeDocument    = uuid.MustParse("C66BA18E-EAF3-4CFF-8A22-41B16D66A972")
	ObjectTypeMember      = uuid.MustParse("39EB0F98-B348-42A1-8662-E7EB18487560")
	ObjectTypeMemberGroup = uuid.MustParse("366E63B9-880F-4E13-A61C-98069B029728")
	ObjectTypeMemberType  = uuid.MustParse("9B5416FB-E72F-45A6-A07C-4A6A6B1D7B8E")
	ObjectTypeDataType    = uuid.MustParse("30A2A501-1978-4DDB-A57B-F7EFED43BA3C")
)

// RootID is the id of the system root node every tree hangs from.
const RootID = -1
