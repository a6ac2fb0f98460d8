package socialservice

import (
	"strings"

	"github.com/sushihentaime/writtenwork/internal/common"
)

func validateComment(v *common.Validator, content string) {
	v.Check(strings.TrimSpace(content) != "", "content", "must be provided")
	v.Check(v.CheckStringLength(content, 1, MaxCommentLength), "content", "must not be more than 1000 characters long")
}
