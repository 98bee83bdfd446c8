package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("password123")
	if err != nil {
		t.Fatalf("生成哈希失败: %v", err)
	}
	if hash == "password123" {
		t.Fatal("哈希不应等于明文")
	}

	if !Verify("password123", hash) {
		t.Fatal("正确密码校验失败")
	}
	if Verify("wrongpassword", hash) {
		t.Fatal("错误密码校验通过")
	}
	if Verify("password123", "not-a-hash") {
		t.Fatal("非法哈希校验通过")
	}
}

// 同一明文两次哈希结果不同（随机盐）
func TestHashSalted(t *testing.T) {
	first, err := Hash("password123")
	if err != nil {
		t.Fatalf("生成哈希失败: %v", err)
	}
	second, err := Hash("password123")
	if err != nil {
		t.Fatalf("生成哈希失败: %v", err)
	}
	if first == second {
		t.Fatal("两次哈希结果相同")
	}
}
