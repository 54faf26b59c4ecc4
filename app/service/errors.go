package service

import (
	"errors"
	"fmt"
)

// InvalidStateError 非法的状态流转或前置条件缺失
// 直接返回给调用方，不会创建任何记录
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return e.Reason
}

// IsInvalidState 判断是否为非法状态错误
func IsInvalidState(err error) bool {
	var ise *InvalidStateError
	return errors.As(err, &ise)
}

// TimeoutError 轮询次数达到上限
// 本地流程放弃跟踪，远程任务不会被取消，可能继续产生费用
type TimeoutError struct {
	JobID    string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("影片生成超时: 任务 %s 轮询 %d 次后仍未完成", e.JobID, e.Attempts)
}

// IsTimeout 判断是否为轮询超时错误
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
