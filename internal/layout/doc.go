// Package layout 聚合仓库目录布局，并提供统一的注册入口。
//
// 布局作者需要：
//  1. 在 internal/layout/<layout-key>/ 目录下实现路径到坐标的解析；
//  2. 通过本包暴露的 Register 函数在 init() 中注册布局元数据；
//  3. 保证解析函数是纯函数，不读取磁盘，元数据重建会在遍历中频繁调用它。
//
// 该包同时负责提供布局发现与诊断端的查询能力。
package layout
